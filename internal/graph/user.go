package graph

import (
	"strconv"
	"time"

	graphql "github.com/graph-gophers/graphql-go"

	"github.com/usergraph/usergraph/internal/model"
)

// UserResolver resolves the User type's fields from a store row.
type UserResolver struct {
	user *model.User
}

// NewUserResolver wraps a user row for the schema.
func NewUserResolver(user *model.User) *UserResolver {
	return &UserResolver{user: user}
}

// ID resolves the id field.
func (r *UserResolver) ID() graphql.ID {
	return graphql.ID(strconv.FormatInt(r.user.ID, 10))
}

// Name resolves the name field.
func (r *UserResolver) Name() string {
	return r.user.Name
}

// Email resolves the email field.
func (r *UserResolver) Email() string {
	return r.user.Email
}

// CreatedAt resolves the createdAt field as an RFC3339 string.
func (r *UserResolver) CreatedAt() string {
	return r.user.CreatedAt.UTC().Format(time.RFC3339)
}
