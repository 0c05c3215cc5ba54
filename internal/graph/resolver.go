package graph

import (
	"context"
	"errors"
	"log/slog"

	"github.com/usergraph/usergraph/internal/metrics"
	"github.com/usergraph/usergraph/internal/model"
	"github.com/usergraph/usergraph/internal/repository"
)

// TopicUserCreated is the bus topic carrying newly created users.
const TopicUserCreated = "USER_CREATED"

// Store is the slice of the repository the resolvers need. Declared
// here so tests can substitute a fake without a database.
type Store interface {
	ListUsers(ctx context.Context) ([]*model.User, error)
	GetUserByName(ctx context.Context, name string) (*model.User, error)
	ConfirmEmail(ctx context.Context, email string) (string, error)
	CreateUser(ctx context.Context, name, email string) (*model.User, error)
}

// EventBus is the publish/subscribe surface the resolvers use.
type EventBus interface {
	Publish(topic string, payload any)
	Subscribe(ctx context.Context, topic string) <-chan any
}

// Resolver is the root resolver. Dependencies are injected rather than
// reached for as globals so the schema can be exercised against fakes.
type Resolver struct {
	store   Store
	bus     EventBus
	logger  *slog.Logger
	metrics metrics.Recorder
}

// NewResolver creates the root resolver with its dependencies.
func NewResolver(store Store, eventBus EventBus, logger *slog.Logger, recorder metrics.Recorder) *Resolver {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	return &Resolver{
		store:   store,
		bus:     eventBus,
		logger:  logger.With("component", "graph"),
		metrics: recorder,
	}
}

// Users resolves Query.users. Always a list, never null.
func (r *Resolver) Users(ctx context.Context) ([]*UserResolver, error) {
	users, err := r.store.ListUsers(ctx)
	if err != nil {
		return nil, err
	}

	resolvers := make([]*UserResolver, 0, len(users))
	for _, user := range users {
		resolvers = append(resolvers, NewUserResolver(user))
	}
	return resolvers, nil
}

// User resolves Query.user. An unknown name is null, not an error.
func (r *Resolver) User(ctx context.Context, args struct{ Name string }) (*UserResolver, error) {
	user, err := r.store.GetUserByName(ctx, args.Name)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			r.metrics.IncUserLookup("miss")
			return nil, nil
		}
		return nil, err
	}

	r.metrics.IncUserLookup("hit")
	return NewUserResolver(user), nil
}

// UserEmail resolves Query.userEmail. The store round trip confirms the
// row exists; the returned string is whatever the store holds.
func (r *Resolver) UserEmail(ctx context.Context, args struct{ Email string }) (*string, error) {
	email, err := r.store.ConfirmEmail(ctx, args.Email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &email, nil
}

// CreateUser resolves Mutation.createUser. The creation event is
// published only after the store has acknowledged the insert, and the
// response does not wait on subscriber delivery.
func (r *Resolver) CreateUser(ctx context.Context, args struct{ Name, Email string }) (*UserResolver, error) {
	user, err := r.store.CreateUser(ctx, args.Name, args.Email)
	if err != nil {
		return nil, err
	}

	r.bus.Publish(TopicUserCreated, user)
	r.metrics.IncUserCreated()
	r.logger.Info("user created", "user_id", user.ID, "name", user.Name)

	return NewUserResolver(user), nil
}

// UserCreated resolves Subscription.userCreated. The stream lives until
// the client disconnects; cancellation of ctx detaches the underlying
// bus subscriber.
func (r *Resolver) UserCreated(ctx context.Context) (<-chan *UserResolver, error) {
	events := r.bus.Subscribe(ctx, TopicUserCreated)
	out := make(chan *UserResolver)

	go func() {
		defer close(out)
		for payload := range events {
			user, ok := payload.(*model.User)
			if !ok {
				r.logger.Warn("unexpected payload on user topic", "topic", TopicUserCreated)
				continue
			}
			select {
			case out <- NewUserResolver(user):
			case <-ctx.Done():
				return
			}
		}
	}()

	return out, nil
}
