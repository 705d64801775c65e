package storage

import "database/sql"

type User struct {
	ID          string
	ExternalID  string
	Email       string
	Name        string
	CreatedAtMs int64
}

type Account struct {
	Seq          int64
	ID           string
	UserID       string
	Name         string
	Type         string
	BalanceUnits int64
	IsDefault    bool
	CreatedAtMs  int64
	UpdatedAtMs  int64
}

type Transaction struct {
	Seq                 int64
	ID                  string
	AccountID           string
	UserID              string
	Type                string
	AmountUnits         int64
	Description         string
	Category            string
	DateMs              int64
	IsRecurring         bool
	RecurringInterval   sql.NullString
	NextRecurringDateMs sql.NullInt64
	Status              string
	CreatedAtMs         int64
	UpdatedAtMs         int64
}
