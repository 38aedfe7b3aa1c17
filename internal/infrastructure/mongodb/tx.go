package mongodb

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/mongo"
)

// TransactionManager runs callbacks inside a MongoDB session transaction.
// Implements domain.TransactionManager.
type TransactionManager struct {
	client *mongo.Client
}

// NewTransactionManager creates a TransactionManager
func NewTransactionManager(client *mongo.Client) *TransactionManager {
	return &TransactionManager{client: client}
}

// WithTransaction executes fn inside one transaction. The context handed to
// fn carries the session; repository calls made with it join the
// transaction. An ambient session is reused rather than nested.
func (t *TransactionManager) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if mongo.SessionFromContext(ctx) != nil {
		return fn(ctx)
	}

	session, err := t.client.StartSession()
	if err != nil {
		return fmt.Errorf("failed to start session: %w", err)
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sessCtx mongo.SessionContext) (interface{}, error) {
		return nil, fn(sessCtx)
	})
	return err
}

// runWrite executes fn inside a transaction unless the context already
// carries one. Repositories use it so that a standalone Save is still
// atomic with its outbox append.
func runWrite(ctx context.Context, client *mongo.Client, fn func(ctx context.Context) error) error {
	return NewTransactionManager(client).WithTransaction(ctx, fn)
}
