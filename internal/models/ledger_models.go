package models

import "time"

// AssetBalance balance of the embedded token ledger
type AssetBalance struct {
	AssetAddress string    `json:"asset_address" gorm:"primaryKey;size:42"`
	Holder       string    `json:"holder" gorm:"primaryKey;size:42"`
	Amount       string    `json:"amount" gorm:"size:80;not null;default:'0'"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// TableName 指定表名
func (AssetBalance) TableName() string {
	return "asset_balances"
}

// AssetAllowance ERC-20 style allowance of the embedded token ledger
type AssetAllowance struct {
	AssetAddress string    `json:"asset_address" gorm:"primaryKey;size:42"`
	Owner        string    `json:"owner" gorm:"primaryKey;size:42"`
	Spender      string    `json:"spender" gorm:"primaryKey;size:42"`
	Amount       string    `json:"amount" gorm:"size:80;not null;default:'0'"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// TableName 指定表名
func (AssetAllowance) TableName() string {
	return "asset_allowances"
}

// AllModels every table the gateway migrates
func AllModels() []interface{} {
	return []interface{}{
		&GatewayState{},
		&Censor{},
		&ProxyBinding{},
		&AssetBinding{},
		&QuotaRecord{},
		&ReleaseRequest{},
		&ReleaseRequestAudit{},
		&OutboundMessage{},
		&InboundMessage{},
		&AssetBalance{},
		&AssetAllowance{},
	}
}
