package repository

import (
	"errors"
	"fmt"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
)

func TestPostgresErrorClassification(t *testing.T) {
	unique := &pq.Error{Code: "23505"}
	fk := &pq.Error{Code: "23503"}
	check := &pq.Error{Code: "23514"}

	assert.True(t, IsUniqueViolation(unique))
	assert.True(t, IsForeignKeyViolation(fk))
	assert.True(t, IsCheckViolation(check))

	assert.False(t, IsUniqueViolation(fk))
	assert.False(t, IsUniqueViolation(errors.New("plain")))
	assert.False(t, IsUniqueViolation(nil))
}

func TestUniqueViolationThroughWrapping(t *testing.T) {
	wrapped := fmt.Errorf("create application: %w", &pq.Error{Code: "23505"})
	assert.True(t, IsUniqueViolation(wrapped))
}
