package repository

import "time"

// User represents a users row.
type User struct {
	ID           string
	Email        string
	FirstName    *string
	LastName     *string
	PasswordHash *string
	RefreshToken *string
	Role         string
	CreatedAt    time.Time
}

// IsBusiness reports whether the account is a business account.
// An empty role reads as consumer for rows created before roles existed.
func (u User) IsBusiness() bool { return u.Role == "business" }

// ScanCursor represents per-user scan state.
type ScanCursor struct {
	ID              string
	UserID          string
	InitialScanDays int
	LastScanAt      *time.Time
	UpdatedAt       time.Time
}

// ReviewQueueItem represents one candidate purchase awaiting adjudication.
type ReviewQueueItem struct {
	ID             string
	UserID         string
	Source         string
	Status         string
	Merchant       *string
	ItemName       string
	NameKey        string
	Category       *string
	Size           *string
	PriceCents     *int64
	Currency       string
	PurchasedAt    *time.Time
	EmailMessageID *string
	EmailThreadID  *string
	ImageURL       *string
	ExtractedJSON  *string
	CreatedAt      time.Time
}

// PriceMissing reports whether a human must supply a price before approval.
func (i ReviewQueueItem) PriceMissing() bool { return i.PriceCents == nil }

// WardrobeItem represents an approved purchase (the confirmed wardrobe entry).
type WardrobeItem struct {
	ID          string
	UserID      string
	Merchant    *string
	ItemName    string
	Category    *string
	Size        *string
	Color       *string
	PriceCents  int64
	Currency    string
	PurchasedAt *time.Time
	WearCount   int
	Source      string
	ImageURL    *string
	CreatedAt   time.Time
}

// Analytics represents the per-user materialized rollup.
type Analytics struct {
	ID                      string
	UserID                  string
	TotalSpendingCents      int64
	TotalPurchases          int
	AveragePurchaseCents    int64
	FrequentMerchant        *string
	FrequentMerchantAmount  *int64
	MerchantFreqJSON        *string
	MostSpentMerchant       *string
	MostSpentMerchantAmount *int64
	MerchantSpendingJSON    *string
	FrequentCategory        *string
	FrequentCategoryAmount  *int64
	CategoryFreqJSON        *string
	MostSpentCategory       *string
	MostSpentCategoryAmount *int64
	CategorySpendingJSON    *string
	FirstPurchaseAt         *time.Time
	LastPurchaseAt          *time.Time
	UpdatedAt               time.Time
}

// Statuses for ReviewQueueItem.
const (
	StatusPending  = "pending"
	StatusApproved = "approved"
	StatusRejected = "rejected"
)

// Sources for queue and wardrobe rows.
const (
	SourceMailbox = "mailbox"
	SourceManual  = "manual"
)
