// Package graph declares the GraphQL schema and its resolvers.
package graph

// Schema is the SDL served by the API. createdAt is deliberately a
// String: the API treats the store-assigned timestamp as opaque text.
const Schema = `
	schema {
		query: Query
		mutation: Mutation
		subscription: Subscription
	}

	type User {
		id: ID!
		name: String!
		email: String!
		createdAt: String!
	}

	type Query {
		users: [User!]!
		user(name: String!): User
		userEmail(email: String!): String
	}

	type Mutation {
		createUser(name: String!, email: String!): User!
	}

	type Subscription {
		userCreated: User!
	}
`
