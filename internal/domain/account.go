package domain

import "time"

// AccountModel is the GORM model for the accounts table of the identity
// store: balances for the ledger and the channel-owner record used to
// verify host claims.
type AccountModel struct {
	ID        uint      `gorm:"primaryKey"`
	Username  string    `gorm:"type:varchar(50);uniqueIndex;not null"`
	ChannelID string    `gorm:"type:varchar(128);uniqueIndex;not null"`
	Balance   int64     `gorm:"not null;default:0"`
	Followers int64     `gorm:"not null;default:0"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

// TableName specifies the table name for AccountModel.
func (AccountModel) TableName() string {
	return "accounts"
}

// ToDomain converts AccountModel to Account.
func (m *AccountModel) ToDomain() *Account {
	return &Account{
		Username:  m.Username,
		ChannelID: m.ChannelID,
		Balance:   m.Balance,
		Followers: m.Followers,
	}
}

// Account is an identity-store account.
type Account struct {
	Username  string `json:"username"`
	ChannelID string `json:"channelId"`
	Balance   int64  `json:"balance"`
	Followers int64  `json:"followers"`
}

// Credit is one balance increase inside a tip transfer.
type Credit struct {
	Name   string
	Amount int64
}
