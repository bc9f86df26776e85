package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGenerateKey(t *testing.T) {
	assert.Equal(t, "transaction:id:0b6f:1", GenerateKey(EntityTransaction, KeyID, "0b6f:1"))
	assert.Equal(t, "transaction:id:42", GenerateKey(EntityTransaction, KeyID, 42))
}
