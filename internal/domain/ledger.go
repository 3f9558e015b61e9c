package domain

import (
	"fmt"
	"strings"
	"time"
)

// Ledger is a user's points balance. It is a value: Credit and Redeem return
// the updated ledger and leave the receiver untouched.
type Ledger struct {
	UserID  string `json:"userId"`
	Balance int    `json:"balance"`
}

// Credit adds points to the balance. Non-positive amounts are ignored.
func (l Ledger) Credit(points int) Ledger {
	if points > 0 {
		l.Balance += points
	}
	return l
}

// Redeem debits the reward cost, failing when the balance cannot cover it.
func (l Ledger) Redeem(reward Reward) (Ledger, error) {
	if l.Balance < reward.Points {
		return l, fmt.Errorf("%w: balance %d, reward %q costs %d", ErrInsufficientPoints, l.Balance, reward.ID, reward.Points)
	}
	l.Balance -= reward.Points
	return l, nil
}

// CanRedeem reports whether the balance covers the reward.
func (l Ledger) CanRedeem(reward Reward) bool {
	return l.Balance >= reward.Points
}

// Reward is an item from the rewards catalog.
type Reward struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Points   int    `json:"points"`
	Category string `json:"category"`
}

// RedemptionMethod is how a reward is delivered.
type RedemptionMethod string

const (
	RedeemWeb  RedemptionMethod = "web"
	RedeemUSSD RedemptionMethod = "ussd"
)

// RedemptionRequest asks for a reward to be redeemed.
type RedemptionRequest struct {
	RewardID string           `json:"rewardId"`
	Method   RedemptionMethod `json:"method"`
	Phone    string           `json:"phone,omitempty"`
}

// Validate checks the method and its required fields.
func (r RedemptionRequest) Validate() error {
	switch r.Method {
	case RedeemWeb:
		return nil
	case RedeemUSSD:
		if strings.TrimSpace(r.Phone) == "" {
			return ErrPhoneRequired
		}
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrInvalidRedemptionMethod, r.Method)
	}
}

// Redemption is the receipt for a redeemed reward.
type Redemption struct {
	RewardID   string           `json:"rewardId"`
	Title      string           `json:"title"`
	Points     int              `json:"points"`
	Method     RedemptionMethod `json:"method"`
	Code       string           `json:"code,omitempty"`
	Recipient  string           `json:"recipient,omitempty"`
	RedeemedAt time.Time        `json:"redeemedAt"`
}
