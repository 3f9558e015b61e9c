package redis

import (
	"context"
	"errors"
	"sync"
	"testing"

	"engage-quiz/internal/domain"
	miniredis "github.com/alicebob/miniredis/v2"
)

func TestLedgerStoreCreditAndRedeem(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	ctx := context.Background()
	store := NewLedgerStore(newClient(mr))

	if _, ok, err := store.GetLedger(ctx, "u1"); ok || err != nil {
		t.Fatalf("expected empty ledger, ok=%v err=%v", ok, err)
	}
	before, after, err := store.Credit(ctx, "u1", 1250, 40)
	if err != nil || before.Balance != 1250 || after.Balance != 1290 {
		t.Fatalf("unexpected credit before=%+v after=%+v err=%v", before, after, err)
	}
	if got := mr.HGet("points:balances", "u1"); got != "1290" {
		t.Fatalf("expected hash field 1290, got %q", got)
	}

	before, after, err = store.Redeem(ctx, "u1", 1250, domain.Reward{ID: "8", Points: 3000})
	if !errors.Is(err, domain.ErrInsufficientPoints) || before.Balance != 1290 || after.Balance != 1290 {
		t.Fatalf("expected insufficient points, before=%+v after=%+v err=%v", before, after, err)
	}
	before, after, err = store.Redeem(ctx, "u1", 1250, domain.Reward{ID: "3", Points: 1000})
	if err != nil || before.Balance != 1290 || after.Balance != 290 {
		t.Fatalf("unexpected redeem before=%+v after=%+v err=%v", before, after, err)
	}

	// Redeeming from a fresh ledger starts at the opening balance.
	_, after, err = store.Redeem(ctx, "u2", 1250, domain.Reward{ID: "1", Points: 100})
	if err != nil || after.Balance != 1150 {
		t.Fatalf("unexpected fresh redeem after=%+v err=%v", after, err)
	}
}

func TestLedgerStoresShareBalanceAcrossInstances(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	ctx := context.Background()
	stores := []*LedgerStore{NewLedgerStore(newClient(mr)), NewLedgerStore(newClient(mr))}

	var wg sync.WaitGroup
	errs := make(chan error, len(stores))
	for _, store := range stores {
		wg.Add(1)
		go func(store *LedgerStore) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				if _, _, err := store.Credit(ctx, "u1", 0, 10); err != nil {
					errs <- err
					return
				}
			}
		}(store)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("credit: %v", err)
	}

	ledger, _, err := stores[0].GetLedger(ctx, "u1")
	if err != nil || ledger.Balance != 4000 {
		t.Fatalf("expected balance 4000, got %+v err=%v", ledger, err)
	}
}

func TestLedgerStoresNeverOverspendAcrossInstances(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	ctx := context.Background()
	stores := []*LedgerStore{NewLedgerStore(newClient(mr)), NewLedgerStore(newClient(mr))}
	reward := domain.Reward{ID: "1", Points: 10}

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		redeemed int
		failures []error
	)
	for _, store := range stores {
		wg.Add(1)
		go func(store *LedgerStore) {
			defer wg.Done()
			for i := 0; i < 20; i++ {
				_, _, err := store.Redeem(ctx, "u1", 100, reward)
				mu.Lock()
				switch {
				case err == nil:
					redeemed++
				case !errors.Is(err, domain.ErrInsufficientPoints):
					failures = append(failures, err)
				}
				mu.Unlock()
			}
		}(store)
	}
	wg.Wait()

	if len(failures) > 0 {
		t.Fatalf("unexpected redeem errors: %v", failures)
	}
	if redeemed != 10 {
		t.Fatalf("expected exactly 10 redemptions, got %d", redeemed)
	}
	ledger, _, err := stores[0].GetLedger(ctx, "u1")
	if err != nil || ledger.Balance != 0 {
		t.Fatalf("expected balance 0, got %+v err=%v", ledger, err)
	}
}
