package repositories

import "context"

// Repository groups every store used by the service
type Repository interface {
	User() UserRepository
	Event() EventRepository
	Proof() ProofRepository
	Review() ReviewRepository
	Token() TokenRepository
	Dashboard() DashboardRepository

	// WithTransaction runs fn against a repository bound to one transaction.
	// fn must only use the repository it receives.
	WithTransaction(ctx context.Context, fn func(Repository) error) error

	// WithReadOnlyTransaction is WithTransaction with a read-only snapshot
	WithReadOnlyTransaction(ctx context.Context, fn func(Repository) error) error

	Ping(ctx context.Context) error
	Close() error
}

// RepositoryManager manages repository lifecycle
type RepositoryManager interface {
	Initialize() error
	GetRepository() Repository
	HealthCheck(ctx context.Context) error
	Shutdown(ctx context.Context) error
}
