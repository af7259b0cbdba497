package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ryanvernados/artmatch-ai/internal/services/market/domain"
	"github.com/ryanvernados/artmatch-ai/internal/services/market/storage"
)

func openTempStore(t *testing.T) *Store {
	t.Helper()

	store, err := Open(filepath.Join(t.TempDir(), "market.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Fatalf("close store: %v", err)
		}
	})
	return store
}

func testTime() time.Time {
	return time.Date(2026, time.March, 10, 9, 30, 0, 0, time.UTC)
}

func seedListing(t *testing.T, store *Store, id string, status domain.ListingStatus) domain.Listing {
	t.Helper()

	listing := domain.Listing{
		ID:                 id,
		SellerID:           "seller-1",
		Title:              "Harbor at Dusk",
		ArtistName:         "M. Keita",
		Medium:             "oil on canvas",
		Style:              "impressionist",
		Price:              decimal.RequireFromString("1000.00"),
		Currency:           "USD",
		Status:             status,
		VerificationStatus: domain.VerificationStatusPending,
		CreatedAt:          testTime(),
		UpdatedAt:          testTime(),
	}
	if err := store.CreateListing(context.Background(), listing); err != nil {
		t.Fatalf("seed listing: %v", err)
	}
	return listing
}

func seedTransaction(t *testing.T, store *Store, id, listingID string) domain.Transaction {
	t.Helper()

	tx, err := domain.CreateTransaction(domain.CreateTransactionInput{
		ListingID: listingID,
		BuyerID:   "buyer-1",
		SellerID:  "seller-1",
		Amount:    decimal.RequireFromString("1000.00"),
		ShippingAddress: domain.ShippingAddress{
			Name:   "Ada Byron",
			Street: "12 Rue des Arts",
		},
	}, testTime, func() (string, error) { return id, nil })
	if err != nil {
		t.Fatalf("build transaction: %v", err)
	}
	if err := store.CreateTransaction(context.Background(), tx); err != nil {
		t.Fatalf("seed transaction: %v", err)
	}
	return tx
}

func TestOpenRequiresPath(t *testing.T) {
	t.Parallel()

	if _, err := Open(""); err == nil {
		t.Fatal("expected empty path error")
	}
}

func TestCreateGetListingRoundTrip(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	listing := seedListing(t, store, "listing-1", domain.ListingStatusDraft)

	got, err := store.GetListing(context.Background(), "listing-1")
	if err != nil {
		t.Fatalf("get listing: %v", err)
	}
	if got.Title != listing.Title {
		t.Fatalf("title = %q, want %q", got.Title, listing.Title)
	}
	if !got.Price.Equal(listing.Price) {
		t.Fatalf("price = %s, want %s", got.Price, listing.Price)
	}
	if got.Status != domain.ListingStatusDraft {
		t.Fatalf("status = %q, want %q", got.Status, domain.ListingStatusDraft)
	}
	if !got.CreatedAt.Equal(testTime()) {
		t.Fatalf("created_at = %v, want %v", got.CreatedAt, testTime())
	}
}

func TestGetListingNotFound(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	if _, err := store.GetListing(context.Background(), "missing"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("error = %v, want %v", err, storage.ErrNotFound)
	}
}

func TestCreateListingDuplicate(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	listing := seedListing(t, store, "listing-dup", domain.ListingStatusDraft)
	if err := store.CreateListing(context.Background(), listing); !errors.Is(err, storage.ErrAlreadyExists) {
		t.Fatalf("duplicate create error = %v, want %v", err, storage.ErrAlreadyExists)
	}
}

func TestUpdateListingGuardsStatus(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	listing := seedListing(t, store, "listing-1", domain.ListingStatusActive)

	// A write carrying a stale status loses without touching the row.
	stale := listing
	stale.Title = "Renamed"
	if err := store.UpdateListing(context.Background(), stale, domain.ListingStatusDraft); !errors.Is(err, storage.ErrConflict) {
		t.Fatalf("stale update error = %v, want %v", err, storage.ErrConflict)
	}
	got, err := store.GetListing(context.Background(), "listing-1")
	if err != nil {
		t.Fatalf("get listing: %v", err)
	}
	if got.Title == "Renamed" {
		t.Fatal("stale update modified the row")
	}

	missing := listing
	missing.ID = "missing"
	if err := store.UpdateListing(context.Background(), missing, domain.ListingStatusActive); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("missing update error = %v, want %v", err, storage.ErrNotFound)
	}

	listing.Title = "Renamed"
	if err := store.UpdateListing(context.Background(), listing, domain.ListingStatusActive); err != nil {
		t.Fatalf("update listing: %v", err)
	}
	got, err = store.GetListing(context.Background(), "listing-1")
	if err != nil {
		t.Fatalf("get listing: %v", err)
	}
	if got.Title != "Renamed" {
		t.Fatalf("title = %q, want Renamed", got.Title)
	}
}

func TestListListingsFilters(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	seedListing(t, store, "listing-a", domain.ListingStatusActive)
	seedListing(t, store, "listing-b", domain.ListingStatusDraft)

	cheap := domain.Listing{
		ID:                 "listing-c",
		SellerID:           "seller-2",
		Title:              "Sketch Study",
		ArtistName:         "L. Novak",
		Medium:             "charcoal",
		Price:              decimal.RequireFromString("150.00"),
		Currency:           "USD",
		Status:             domain.ListingStatusActive,
		VerificationStatus: domain.VerificationStatusVerified,
		CreatedAt:          testTime().Add(time.Hour),
		UpdatedAt:          testTime().Add(time.Hour),
	}
	if err := store.CreateListing(context.Background(), cheap); err != nil {
		t.Fatalf("create listing: %v", err)
	}

	active, err := store.ListListings(context.Background(), storage.ListingFilter{
		Status: domain.ListingStatusActive,
		Limit:  10,
	})
	if err != nil {
		t.Fatalf("list active: %v", err)
	}
	if len(active) != 2 {
		t.Fatalf("active count = %d, want 2", len(active))
	}

	verified, err := store.ListListings(context.Background(), storage.ListingFilter{
		Status:       domain.ListingStatusActive,
		VerifiedOnly: true,
		Limit:        10,
	})
	if err != nil {
		t.Fatalf("list verified: %v", err)
	}
	if len(verified) != 1 || verified[0].ID != "listing-c" {
		t.Fatalf("verified = %+v, want only listing-c", verified)
	}

	priced, err := store.ListListings(context.Background(), storage.ListingFilter{
		MaxPrice: decimal.RequireFromString("200"),
		Limit:    10,
	})
	if err != nil {
		t.Fatalf("list by price: %v", err)
	}
	if len(priced) != 1 || priced[0].ID != "listing-c" {
		t.Fatalf("priced = %+v, want only listing-c", priced)
	}

	byPrice, err := store.ListListings(context.Background(), storage.ListingFilter{
		OrderBy: storage.OrderPriceAsc,
		Limit:   10,
	})
	if err != nil {
		t.Fatalf("list price asc: %v", err)
	}
	if byPrice[0].ID != "listing-c" {
		t.Fatalf("first by price = %q, want listing-c", byPrice[0].ID)
	}
}

func TestIncrementViewCount(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	seedListing(t, store, "listing-1", domain.ListingStatusActive)

	for i := 0; i < 3; i++ {
		if err := store.IncrementViewCount(context.Background(), "listing-1"); err != nil {
			t.Fatalf("increment view count: %v", err)
		}
	}

	got, err := store.GetListing(context.Background(), "listing-1")
	if err != nil {
		t.Fatalf("get listing: %v", err)
	}
	if got.ViewCount != 3 {
		t.Fatalf("view_count = %d, want 3", got.ViewCount)
	}

	if err := store.IncrementViewCount(context.Background(), "missing"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("missing increment error = %v, want %v", err, storage.ErrNotFound)
	}
}

func TestReserveListingConflict(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	seedListing(t, store, "listing-1", domain.ListingStatusActive)

	if err := store.ReserveListing(context.Background(), "listing-1", testTime()); err != nil {
		t.Fatalf("reserve: %v", err)
	}
	if err := store.ReserveListing(context.Background(), "listing-1", testTime()); !errors.Is(err, storage.ErrConflict) {
		t.Fatalf("second reserve error = %v, want %v", err, storage.ErrConflict)
	}
	if err := store.ReleaseListing(context.Background(), "listing-1", testTime()); err != nil {
		t.Fatalf("release: %v", err)
	}

	got, err := store.GetListing(context.Background(), "listing-1")
	if err != nil {
		t.Fatalf("get listing: %v", err)
	}
	if got.Status != domain.ListingStatusActive {
		t.Fatalf("status = %q, want %q", got.Status, domain.ListingStatusActive)
	}
}

func TestCreateTransactionReservesListing(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	seedListing(t, store, "listing-1", domain.ListingStatusActive)
	tx := seedTransaction(t, store, "tx-1", "listing-1")

	got, err := store.GetTransaction(context.Background(), "tx-1")
	if err != nil {
		t.Fatalf("get transaction: %v", err)
	}
	if !got.Amount.Equal(tx.Amount) {
		t.Fatalf("amount = %s, want %s", got.Amount, tx.Amount)
	}
	if got.PlatformFee.StringFixed(2) != "50.00" {
		t.Fatalf("platform_fee = %s, want 50.00", got.PlatformFee)
	}

	listing, err := store.GetListing(context.Background(), "listing-1")
	if err != nil {
		t.Fatalf("get listing: %v", err)
	}
	if listing.Status != domain.ListingStatusReserved {
		t.Fatalf("listing status = %q, want %q", listing.Status, domain.ListingStatusReserved)
	}
}

func TestCreateTransactionRejectsUnavailableListing(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	seedListing(t, store, "listing-1", domain.ListingStatusActive)
	seedTransaction(t, store, "tx-1", "listing-1")

	second, err := domain.CreateTransaction(domain.CreateTransactionInput{
		ListingID: "listing-1",
		BuyerID:   "buyer-2",
		SellerID:  "seller-1",
		Amount:    decimal.RequireFromString("1000.00"),
		ShippingAddress: domain.ShippingAddress{
			Name:   "Kim Osei",
			Street: "4 Gallery Row",
		},
	}, testTime, func() (string, error) { return "tx-2", nil })
	if err != nil {
		t.Fatalf("build transaction: %v", err)
	}
	if err := store.CreateTransaction(context.Background(), second); !errors.Is(err, storage.ErrConflict) {
		t.Fatalf("second purchase error = %v, want %v", err, storage.ErrConflict)
	}
}

func TestConcurrentPurchasesOneWins(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	seedListing(t, store, "listing-1", domain.ListingStatusActive)

	var wg sync.WaitGroup
	results := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			tx, err := domain.CreateTransaction(domain.CreateTransactionInput{
				ListingID: "listing-1",
				BuyerID:   "buyer-" + string(rune('a'+i)),
				SellerID:  "seller-1",
				Amount:    decimal.RequireFromString("1000.00"),
				ShippingAddress: domain.ShippingAddress{
					Name:   "Buyer",
					Street: "1 Main St",
				},
			}, testTime, nil)
			if err != nil {
				results[i] = err
				return
			}
			results[i] = store.CreateTransaction(context.Background(), tx)
		}(i)
	}
	wg.Wait()

	var wins, conflicts int
	for _, err := range results {
		switch {
		case err == nil:
			wins++
		case errors.Is(err, storage.ErrConflict):
			conflicts++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if wins != 1 || conflicts != 1 {
		t.Fatalf("wins = %d, conflicts = %d, want exactly one of each", wins, conflicts)
	}
}

func TestUpdateTransactionGuardsStatus(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	seedListing(t, store, "listing-1", domain.ListingStatusActive)
	tx := seedTransaction(t, store, "tx-1", "listing-1")

	paid, err := domain.MarkPaid(tx, testTime)
	if err != nil {
		t.Fatalf("mark paid: %v", err)
	}
	if err := store.UpdateTransaction(context.Background(), paid, domain.TransactionStatusPending); err != nil {
		t.Fatalf("update transaction: %v", err)
	}

	// Same guard again must conflict: the row is no longer pending.
	if err := store.UpdateTransaction(context.Background(), paid, domain.TransactionStatusPending); !errors.Is(err, storage.ErrConflict) {
		t.Fatalf("stale update error = %v, want %v", err, storage.ErrConflict)
	}

	got, err := store.GetTransaction(context.Background(), "tx-1")
	if err != nil {
		t.Fatalf("get transaction: %v", err)
	}
	if got.Status != domain.TransactionStatusProcessing {
		t.Fatalf("status = %q, want %q", got.Status, domain.TransactionStatusProcessing)
	}
	if got.EscrowStatus != domain.EscrowStatusHeld {
		t.Fatalf("escrow = %q, want %q", got.EscrowStatus, domain.EscrowStatusHeld)
	}
}

func TestCompleteTransactionUnit(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	seedListing(t, store, "listing-1", domain.ListingStatusActive)
	tx := seedTransaction(t, store, "tx-1", "listing-1")

	paid, err := domain.MarkPaid(tx, testTime)
	if err != nil {
		t.Fatalf("mark paid: %v", err)
	}
	if err := store.UpdateTransaction(context.Background(), paid, domain.TransactionStatusPending); err != nil {
		t.Fatalf("persist paid: %v", err)
	}
	shipped, err := domain.MarkShipped(paid, testTime)
	if err != nil {
		t.Fatalf("mark shipped: %v", err)
	}
	if err := store.UpdateTransaction(context.Background(), shipped, domain.TransactionStatusProcessing); err != nil {
		t.Fatalf("persist shipped: %v", err)
	}
	completed, err := domain.ConfirmDelivery(shipped, testTime)
	if err != nil {
		t.Fatalf("confirm delivery: %v", err)
	}

	saleEvent, err := domain.CreateProvenanceEvent(domain.CreateProvenanceEventInput{
		ListingID:   "listing-1",
		EventType:   domain.ProvenanceEventSale,
		Description: "Sold through the marketplace.",
	}, testTime, nil)
	if err != nil {
		t.Fatalf("build sale event: %v", err)
	}

	if err := store.CompleteTransaction(context.Background(), completed, saleEvent); err != nil {
		t.Fatalf("complete transaction: %v", err)
	}

	listing, err := store.GetListing(context.Background(), "listing-1")
	if err != nil {
		t.Fatalf("get listing: %v", err)
	}
	if listing.Status != domain.ListingStatusSold {
		t.Fatalf("listing status = %q, want %q", listing.Status, domain.ListingStatusSold)
	}

	seller, err := store.GetUser(context.Background(), "seller-1")
	if err != nil {
		t.Fatalf("get seller: %v", err)
	}
	if seller.TotalSales != 1 {
		t.Fatalf("seller total_sales = %d, want 1", seller.TotalSales)
	}
	buyer, err := store.GetUser(context.Background(), "buyer-1")
	if err != nil {
		t.Fatalf("get buyer: %v", err)
	}
	if buyer.TotalPurchases != 1 {
		t.Fatalf("buyer total_purchases = %d, want 1", buyer.TotalPurchases)
	}

	events, err := store.ListProvenanceForListing(context.Background(), "listing-1")
	if err != nil {
		t.Fatalf("list provenance: %v", err)
	}
	if len(events) != 1 || events[0].EventType != domain.ProvenanceEventSale {
		t.Fatalf("provenance = %+v, want one sale event", events)
	}

	// Replays conflict on the status guard.
	if err := store.CompleteTransaction(context.Background(), completed, saleEvent); !errors.Is(err, storage.ErrConflict) {
		t.Fatalf("replay error = %v, want %v", err, storage.ErrConflict)
	}
}

func TestCancelTransactionReleasesListing(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	seedListing(t, store, "listing-1", domain.ListingStatusActive)
	tx := seedTransaction(t, store, "tx-1", "listing-1")

	cancelled, err := domain.Cancel(tx, testTime)
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if err := store.CancelTransaction(context.Background(), cancelled, domain.TransactionStatusPending); err != nil {
		t.Fatalf("cancel transaction: %v", err)
	}

	listing, err := store.GetListing(context.Background(), "listing-1")
	if err != nil {
		t.Fatalf("get listing: %v", err)
	}
	if listing.Status != domain.ListingStatusActive {
		t.Fatalf("listing status = %q, want %q", listing.Status, domain.ListingStatusActive)
	}

	// The listing is purchasable again.
	seedTransaction(t, store, "tx-2", "listing-1")
}

func TestListStalePending(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	seedListing(t, store, "listing-1", domain.ListingStatusActive)
	seedTransaction(t, store, "tx-1", "listing-1")

	stale, err := store.ListStalePending(context.Background(), testTime().Add(time.Hour))
	if err != nil {
		t.Fatalf("list stale pending: %v", err)
	}
	if len(stale) != 1 || stale[0].ID != "tx-1" {
		t.Fatalf("stale = %+v, want tx-1", stale)
	}

	none, err := store.ListStalePending(context.Background(), testTime().Add(-time.Hour))
	if err != nil {
		t.Fatalf("list stale pending: %v", err)
	}
	if len(none) != 0 {
		t.Fatalf("stale before cutoff = %+v, want none", none)
	}
}

func TestReviewsRecomputeAggregates(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	seedListing(t, store, "listing-1", domain.ListingStatusActive)

	ratings := []int{5, 4}
	for i, rating := range ratings {
		review, err := domain.CreateReview(domain.CreateReviewInput{
			ListingID:  "listing-1",
			SellerID:   "seller-1",
			ReviewerID: "buyer-" + string(rune('a'+i)),
			Rating:     rating,
		}, testTime, nil)
		if err != nil {
			t.Fatalf("build review: %v", err)
		}
		if err := store.CreateReview(context.Background(), review); err != nil {
			t.Fatalf("create review: %v", err)
		}
	}
	if err := store.RecomputeListingRating(context.Background(), "listing-1"); err != nil {
		t.Fatalf("recompute listing rating: %v", err)
	}

	listing, err := store.GetListing(context.Background(), "listing-1")
	if err != nil {
		t.Fatalf("get listing: %v", err)
	}
	if listing.TotalReviews != 2 {
		t.Fatalf("total_reviews = %d, want 2", listing.TotalReviews)
	}
	if listing.AverageRating != 4.5 {
		t.Fatalf("average_rating = %v, want 4.5", listing.AverageRating)
	}

	// Recomputing again changes nothing.
	if err := store.RecomputeListingRating(context.Background(), "listing-1"); err != nil {
		t.Fatalf("recompute again: %v", err)
	}
	again, err := store.GetListing(context.Background(), "listing-1")
	if err != nil {
		t.Fatalf("get listing: %v", err)
	}
	if again.AverageRating != 4.5 || again.TotalReviews != 2 {
		t.Fatalf("aggregates drifted: %v/%d", again.AverageRating, again.TotalReviews)
	}

	reviews, err := store.ListReviewsForListing(context.Background(), "listing-1", 10, 0)
	if err != nil {
		t.Fatalf("list reviews: %v", err)
	}
	if len(reviews) != 2 {
		t.Fatalf("reviews = %d, want 2", len(reviews))
	}
}

func TestSellerRatingRecompute(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	now := testTime()
	if err := store.CreateUser(context.Background(), domain.User{
		ID:        "seller-1",
		Role:      domain.RoleUser,
		IsSeller:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}); err != nil {
		t.Fatalf("create user: %v", err)
	}

	review, err := domain.CreateReview(domain.CreateReviewInput{
		SellerID:   "seller-1",
		ReviewerID: "buyer-1",
		Rating:     3,
	}, testTime, nil)
	if err != nil {
		t.Fatalf("build review: %v", err)
	}
	if err := store.CreateReview(context.Background(), review); err != nil {
		t.Fatalf("create review: %v", err)
	}
	if err := store.RecomputeSellerRating(context.Background(), "seller-1"); err != nil {
		t.Fatalf("recompute seller rating: %v", err)
	}

	seller, err := store.GetUser(context.Background(), "seller-1")
	if err != nil {
		t.Fatalf("get user: %v", err)
	}
	if seller.AverageRating != 3 || seller.TotalReviews != 1 {
		t.Fatalf("seller aggregates = %v/%d, want 3/1", seller.AverageRating, seller.TotalReviews)
	}
}

func TestFavoritesIdempotent(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	seedListing(t, store, "listing-1", domain.ListingStatusActive)

	favorite := domain.Favorite{UserID: "buyer-1", ListingID: "listing-1", CreatedAt: testTime()}
	for i := 0; i < 2; i++ {
		if err := store.AddFavorite(context.Background(), favorite); err != nil {
			t.Fatalf("add favorite: %v", err)
		}
	}

	listing, err := store.GetListing(context.Background(), "listing-1")
	if err != nil {
		t.Fatalf("get listing: %v", err)
	}
	if listing.FavoriteCount != 1 {
		t.Fatalf("favorite_count = %d, want 1", listing.FavoriteCount)
	}

	favorited, err := store.IsFavorited(context.Background(), "buyer-1", "listing-1")
	if err != nil {
		t.Fatalf("is favorited: %v", err)
	}
	if !favorited {
		t.Fatal("is favorited = false, want true")
	}

	saved, err := store.ListFavoritesForUser(context.Background(), "buyer-1", 10, 0)
	if err != nil {
		t.Fatalf("list favorites: %v", err)
	}
	if len(saved) != 1 || saved[0].ID != "listing-1" {
		t.Fatalf("favorites = %+v, want listing-1", saved)
	}

	for i := 0; i < 2; i++ {
		if err := store.RemoveFavorite(context.Background(), "buyer-1", "listing-1"); err != nil {
			t.Fatalf("remove favorite: %v", err)
		}
	}
	listing, err = store.GetListing(context.Background(), "listing-1")
	if err != nil {
		t.Fatalf("get listing: %v", err)
	}
	if listing.FavoriteCount != 0 {
		t.Fatalf("favorite_count after removal = %d, want 0", listing.FavoriteCount)
	}
}

func TestSetVerification(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	seedListing(t, store, "listing-1", domain.ListingStatusActive)

	confidence := 87.5
	if err := store.SetVerification(context.Background(), "listing-1", domain.VerificationStatusVerified, &confidence, testTime()); err != nil {
		t.Fatalf("set verification: %v", err)
	}

	listing, err := store.GetListing(context.Background(), "listing-1")
	if err != nil {
		t.Fatalf("get listing: %v", err)
	}
	if listing.VerificationStatus != domain.VerificationStatusVerified {
		t.Fatalf("verification = %q, want verified", listing.VerificationStatus)
	}
	if listing.AIConfidenceScore == nil || *listing.AIConfidenceScore != confidence {
		t.Fatalf("confidence = %v, want %v", listing.AIConfidenceScore, confidence)
	}

	// A later decision without a score leaves the stored one alone.
	if err := store.SetVerification(context.Background(), "listing-1", domain.VerificationStatusVerified, nil, testTime().Add(time.Hour)); err != nil {
		t.Fatalf("re-set verification: %v", err)
	}
	listing, err = store.GetListing(context.Background(), "listing-1")
	if err != nil {
		t.Fatalf("get listing: %v", err)
	}
	if listing.AIConfidenceScore == nil || *listing.AIConfidenceScore != confidence {
		t.Fatalf("confidence after scoreless decision = %v, want %v", listing.AIConfidenceScore, confidence)
	}

	pending, err := store.ListPendingVerification(context.Background(), 10, 0)
	if err != nil {
		t.Fatalf("list pending verification: %v", err)
	}
	if len(pending) != 0 {
		t.Fatalf("pending = %+v, want none", pending)
	}
}

func TestEnsureSeller(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)

	// No profile yet: a row is created with the seller flag set.
	if err := store.EnsureSeller(context.Background(), "user-1", testTime()); err != nil {
		t.Fatalf("ensure seller: %v", err)
	}
	user, err := store.GetUser(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("get user: %v", err)
	}
	if !user.IsSeller {
		t.Fatal("user is not a seller after ensure")
	}

	// Existing profile keeps its fields, only the flag flips.
	buyer := domain.User{
		ID:          "user-2",
		DisplayName: "Mabel",
		Role:        domain.RoleUser,
		CreatedAt:   testTime(),
		UpdatedAt:   testTime(),
	}
	if err := store.CreateUser(context.Background(), buyer); err != nil {
		t.Fatalf("create user: %v", err)
	}
	if err := store.EnsureSeller(context.Background(), "user-2", testTime().Add(time.Hour)); err != nil {
		t.Fatalf("ensure seller on existing user: %v", err)
	}
	user, err = store.GetUser(context.Background(), "user-2")
	if err != nil {
		t.Fatalf("get user: %v", err)
	}
	if !user.IsSeller || user.DisplayName != "Mabel" {
		t.Fatalf("user = %+v, want seller flag with display name intact", user)
	}
}

func TestEndorsementsRoundTrip(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	seedListing(t, store, "listing-1", domain.ListingStatusActive)

	endorsement, err := domain.CreateEndorsement(domain.CreateEndorsementInput{
		ListingID:             "listing-1",
		ExpertName:            "Dr. Helen Cho",
		ExpertTitle:           "Curator",
		Text:                  "Consistent with the artist's late period.",
		AuthenticityConfirmed: true,
	}, testTime, nil)
	if err != nil {
		t.Fatalf("build endorsement: %v", err)
	}
	if err := store.CreateEndorsement(context.Background(), endorsement); err != nil {
		t.Fatalf("create endorsement: %v", err)
	}

	endorsements, err := store.ListEndorsementsForListing(context.Background(), "listing-1")
	if err != nil {
		t.Fatalf("list endorsements: %v", err)
	}
	if len(endorsements) != 1 || !endorsements[0].AuthenticityConfirmed {
		t.Fatalf("endorsements = %+v, want one confirmed", endorsements)
	}
}

func TestMarketplaceStats(t *testing.T) {
	t.Parallel()

	store := openTempStore(t)
	seedListing(t, store, "listing-1", domain.ListingStatusActive)
	seedListing(t, store, "listing-2", domain.ListingStatusActive)
	tx := seedTransaction(t, store, "tx-1", "listing-1")

	paid, err := domain.MarkPaid(tx, testTime)
	if err != nil {
		t.Fatalf("mark paid: %v", err)
	}
	if err := store.UpdateTransaction(context.Background(), paid, domain.TransactionStatusPending); err != nil {
		t.Fatalf("persist paid: %v", err)
	}
	shipped, err := domain.MarkShipped(paid, testTime)
	if err != nil {
		t.Fatalf("mark shipped: %v", err)
	}
	if err := store.UpdateTransaction(context.Background(), shipped, domain.TransactionStatusProcessing); err != nil {
		t.Fatalf("persist shipped: %v", err)
	}
	completed, err := domain.ConfirmDelivery(shipped, testTime)
	if err != nil {
		t.Fatalf("confirm delivery: %v", err)
	}
	saleEvent, err := domain.CreateProvenanceEvent(domain.CreateProvenanceEventInput{
		ListingID:   "listing-1",
		EventType:   domain.ProvenanceEventSale,
		Description: "Sold through the marketplace.",
	}, testTime, nil)
	if err != nil {
		t.Fatalf("build sale event: %v", err)
	}
	if err := store.CompleteTransaction(context.Background(), completed, saleEvent); err != nil {
		t.Fatalf("complete transaction: %v", err)
	}

	stats, err := store.GetMarketplaceStats(context.Background())
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.TotalListings != 2 {
		t.Fatalf("total_listings = %d, want 2", stats.TotalListings)
	}
	if stats.SoldListings != 1 {
		t.Fatalf("sold_listings = %d, want 1", stats.SoldListings)
	}
	if stats.CompletedSalesValue.StringFixed(2) != "1000.00" {
		t.Fatalf("sales value = %s, want 1000.00", stats.CompletedSalesValue)
	}
	if stats.PlatformFeesEarned.StringFixed(2) != "50.00" {
		t.Fatalf("fees = %s, want 50.00", stats.PlatformFeesEarned)
	}
}
