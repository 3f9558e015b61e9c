package memory

import (
	"context"

	"engage-quiz/internal/domain"
)

// RewardCatalog is a fixed, ordered rewards catalog.
type RewardCatalog struct {
	rewards []domain.Reward
	byID    map[string]domain.Reward
}

func NewRewardCatalog(rewards []domain.Reward) *RewardCatalog {
	c := &RewardCatalog{
		rewards: append([]domain.Reward(nil), rewards...),
		byID:    make(map[string]domain.Reward, len(rewards)),
	}
	for _, r := range rewards {
		c.byID[r.ID] = r
	}
	return c
}

func (c *RewardCatalog) ListRewards(_ context.Context) ([]domain.Reward, error) {
	return append([]domain.Reward(nil), c.rewards...), nil
}

func (c *RewardCatalog) GetReward(_ context.Context, rewardID string) (domain.Reward, error) {
	reward, ok := c.byID[rewardID]
	if !ok {
		return domain.Reward{}, domain.ErrRewardNotFound
	}
	return reward, nil
}

// SampleRewards is the demo rewards catalog.
func SampleRewards() []domain.Reward {
	return []domain.Reward{
		{ID: "1", Title: "Ksh 100 Airtime", Points: 100, Category: "Airtime"},
		{ID: "2", Title: "Ksh 500 Airtime", Points: 500, Category: "Airtime"},
		{ID: "3", Title: "Ksh 1,000 Shopping Voucher", Points: 1000, Category: "Vouchers"},
		{ID: "4", Title: "Movie Tickets for Two", Points: 800, Category: "Experiences"},
		{ID: "5", Title: "Branded T-Shirt", Points: 600, Category: "Merchandise"},
		{ID: "6", Title: "Ksh 2,000 Uber Voucher", Points: 2000, Category: "Vouchers"},
		{ID: "7", Title: "Coffee Shop Gift Card", Points: 500, Category: "Vouchers"},
		{ID: "8", Title: "Wireless Earbuds", Points: 3000, Category: "Merchandise"},
	}
}

func abcd(a, b, c, d string) []domain.Option {
	return []domain.Option{
		{Value: "a", Label: a},
		{Value: "b", Label: b},
		{Value: "c", Label: c},
		{Value: "d", Label: d},
	}
}

// SampleQuizzes provides demo quiz data; swap this loader for a database-backed one in production.
func SampleQuizzes() map[string]domain.Quiz {
	return map[string]domain.Quiz{
		"2": {
			ID:          "2",
			Title:       "Safaricom Services Quiz",
			Description: "How well do you know Safaricom's products and services?",
			Category:    "Technology",
			Sponsor:     "Safaricom",
			Prize:       "Airtime worth Ksh 1,000",
			TimeLimit:   60,
			Points:      80,
			Questions: []domain.Question{
				{Prompt: "What year was M-Pesa launched in Kenya?", Options: abcd("2005", "2007", "2009", "2011"), CorrectOption: "b"},
				{Prompt: "Which of the following is NOT a Safaricom service?", Options: abcd("M-Shwari", "M-Pesa", "M-Kopa", "M-Transfer"), CorrectOption: "d"},
				{Prompt: "What is the maximum amount you can hold in your M-Pesa account?", Options: abcd("Ksh 50,000", "Ksh 100,000", "Ksh 150,000", "Ksh 300,000"), CorrectOption: "c"},
				{Prompt: "Which of these is a Safaricom home internet service?", Options: abcd("Home Fiber", "Home Connect", "Home Link", "Home Net"), CorrectOption: "a"},
				{Prompt: "What color is primarily associated with the Safaricom brand?", Options: abcd("Blue", "Red", "Green", "Yellow"), CorrectOption: "c"},
				{Prompt: "Which of these is Safaricom's music streaming service?", Options: abcd("Safaricom Music", "Songa", "Skiza", "Bonga"), CorrectOption: "b"},
				{Prompt: "What is the name of Safaricom's loyalty program?", Options: abcd("Safaricom Rewards", "Safaricom Plus", "Bonga Points", "Pesa Points"), CorrectOption: "c"},
				{Prompt: "Which short code is used to check your M-Pesa balance?", Options: abcd("*144#", "*456#", "*234#", "*334#"), CorrectOption: "a"},
			},
		},
		"article-1": {
			ID:        "article-1",
			Title:     "Test Your Understanding",
			Category:  "Technology",
			TimeLimit: 60,
			Points:    30,
			Questions: []domain.Question{
				{
					Prompt:        "What technology has already transformed how Africans access financial services?",
					Options:       abcd("Blockchain", "Mobile money platforms like M-Pesa", "Artificial Intelligence", "Virtual Reality"),
					CorrectOption: "b",
				},
				{
					Prompt:        "Which cities are mentioned as globally recognized centers of innovation in Africa?",
					Options:       abcd("Accra, Johannesburg, Tunis", "Lagos, Nairobi, Cape Town, Cairo", "Kigali, Addis Ababa, Casablanca", "Dakar, Abuja, Durban"),
					CorrectOption: "b",
				},
				{
					Prompt:        "What is one application of blockchain technology mentioned in the article?",
					Options:       abcd("Digital currencies", "Gaming platforms", "Secure land registries", "Social media networks"),
					CorrectOption: "c",
				},
				{
					Prompt:        "According to the article, what is one challenge that remains for technology in Africa?",
					Options:       abcd("Lack of innovation", "Digital divides between urban and rural areas", "Insufficient population", "Too much foreign investment"),
					CorrectOption: "b",
				},
				{
					Prompt:        "What factor is mentioned as contributing to Africa's potential to leapfrog traditional development stages?",
					Options:       abcd("Colonial history", "Natural resources", "Young population and increasing internet penetration", "International aid"),
					CorrectOption: "c",
				},
			},
		},
	}
}
