package common

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/mongo"
)

func TestErrorIs(t *testing.T) {
	t.Run("wrapped standard error matches", func(t *testing.T) {
		err := fmt.Errorf("find page: %w", ErrNotFound)
		assert.True(t, errors.Is(err, ErrNotFound))
		assert.False(t, errors.Is(err, ErrDuplicate))
	})

	t.Run("Wrap keeps identity and cause", func(t *testing.T) {
		cause := errors.New("dial tcp: refused")
		err := Wrap(ErrGraphUnavailable, cause)
		assert.True(t, errors.Is(err, ErrGraphUnavailable))
		assert.True(t, errors.Is(err, cause))
		assert.Equal(t, StatusBadGateway, StatusOf(err))
	})

	t.Run("plain error defaults to 500", func(t *testing.T) {
		assert.Equal(t, StatusInternalServerError, StatusOf(errors.New("x")))
	})
}

func TestConvertMongoError(t *testing.T) {
	assert.Nil(t, ConvertMongoError(nil))
	assert.True(t, errors.Is(ConvertMongoError(mongo.ErrNoDocuments), ErrNotFound))

	dup := mongo.WriteException{WriteErrors: []mongo.WriteError{{Code: 11000, Message: "E11000 duplicate key"}}}
	assert.True(t, errors.Is(ConvertMongoError(dup), ErrDuplicate))

	// lỗi chuẩn đi qua không đổi
	assert.Equal(t, ErrInvalidInput, ConvertMongoError(ErrInvalidInput))
}
