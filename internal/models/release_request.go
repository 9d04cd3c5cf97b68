package models

import (
	"math/big"
	"time"
)

// ReleaseRequestStatus 释放请求状态
type ReleaseRequestStatus string

const (
	ReleaseRequestStatusPending  ReleaseRequestStatus = "pending"  // 等待审核
	ReleaseRequestStatusApproved ReleaseRequestStatus = "approved" // 已释放
	ReleaseRequestStatusBanned   ReleaseRequestStatus = "banned"   // 已冻结
	ReleaseRequestStatusRemoved  ReleaseRequestStatus = "removed"  // 已作废
)

// Terminal reports whether no further transition is possible
func (s ReleaseRequestStatus) Terminal() bool {
	return s == ReleaseRequestStatusApproved || s == ReleaseRequestStatusRemoved
}

// ReleaseRequest a deferred release created when an inbound unlock exceeds the quota
type ReleaseRequest struct {
	ID             uint64               `json:"id" gorm:"primaryKey;autoIncrement:false"` // sequential, starts at 1
	Status         ReleaseRequestStatus `json:"status" gorm:"size:16;not null;default:'pending';index"`
	FromChainID    uint64               `json:"from_chain_id" gorm:"not null"`
	FromProxyHash  string               `json:"from_proxy_hash" gorm:"size:130;not null"`
	ToAssetAddress string               `json:"to_asset_address" gorm:"size:42;not null;index"`
	ToAddress      string               `json:"to_address" gorm:"size:42;not null;index"`
	Amount         string               `json:"amount" gorm:"size:80;not null"`
	Note           string               `json:"note" gorm:"type:text"`

	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	SettledAt *time.Time `json:"settled_at"` // approved or removed
}

// TableName 指定表名
func (ReleaseRequest) TableName() string {
	return "release_requests"
}

// AmountValue returns Amount as an integer
func (r *ReleaseRequest) AmountValue() *big.Int {
	return parseAmount(r.Amount)
}

// ReleaseRequestAction 审核动作
type ReleaseRequestAction string

const (
	ReleaseRequestActionCreate  ReleaseRequestAction = "create"
	ReleaseRequestActionApprove ReleaseRequestAction = "approve"
	ReleaseRequestActionBan     ReleaseRequestAction = "ban"
	ReleaseRequestActionUnban   ReleaseRequestAction = "unban"
	ReleaseRequestActionRemove  ReleaseRequestAction = "remove"
)

// ReleaseRequestAudit one row per status transition
type ReleaseRequestAudit struct {
	ID         uint64               `json:"id" gorm:"primaryKey;autoIncrement"`
	RequestID  uint64               `json:"request_id" gorm:"not null;index"`
	Action     ReleaseRequestAction `json:"action" gorm:"size:16;not null"`
	Actor      string               `json:"actor" gorm:"size:42;not null"`
	FromStatus ReleaseRequestStatus `json:"from_status" gorm:"size:16"`
	ToStatus   ReleaseRequestStatus `json:"to_status" gorm:"size:16;not null"`
	Note       string               `json:"note" gorm:"type:text"`
	CreatedAt  time.Time            `json:"created_at"`
}

// TableName 指定表名
func (ReleaseRequestAudit) TableName() string {
	return "release_request_audits"
}
