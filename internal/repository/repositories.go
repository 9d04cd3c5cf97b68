package repository

import "gorm.io/gorm"

// Repositories bundles every repository over one *gorm.DB, usually a transaction
type Repositories struct {
	State    GatewayStateRepository
	Censors  CensorRepository
	Bindings BindingRepository
	Quotas   QuotaRepository
	Requests ReleaseRequestRepository
	Outbound OutboundMessageRepository
	Inbound  InboundMessageRepository
}

// New builds the repository set over db
func New(db *gorm.DB) *Repositories {
	return &Repositories{
		State:    NewGatewayStateRepository(db),
		Censors:  NewCensorRepository(db),
		Bindings: NewBindingRepository(db),
		Quotas:   NewQuotaRepository(db),
		Requests: NewReleaseRequestRepository(db),
		Outbound: NewOutboundMessageRepository(db),
		Inbound:  NewInboundMessageRepository(db),
	}
}
