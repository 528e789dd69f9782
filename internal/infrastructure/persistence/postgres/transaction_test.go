package postgres

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func TestTxFrom(t *testing.T) {
	_, ok := txFrom(context.Background())
	assert.False(t, ok)

	var nilTx *gorm.DB
	_, ok = txFrom(context.WithValue(context.Background(), txKey{}, nilTx))
	assert.False(t, ok)

	tx := &gorm.DB{}
	got, ok := txFrom(context.WithValue(context.Background(), txKey{}, tx))
	assert.True(t, ok)
	assert.Same(t, tx, got)
}

func TestWithTransaction_ReusesOuter(t *testing.T) {
	m := &TxManager{}
	ctx := context.WithValue(context.Background(), txKey{}, &gorm.DB{})
	called := false
	err := m.WithTransaction(ctx, func(inner context.Context) error {
		called = true
		assert.Equal(t, ctx, inner)
		return nil
	})
	assert.NoError(t, err)
	assert.True(t, called)
}
