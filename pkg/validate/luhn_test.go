package validate

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsLuhn(t *testing.T) {
	tests := []struct {
		name   string
		number string
		valid  bool
	}{
		{"valid number", "79927398713", true},
		{"valid twelve digits", "123456789031", true},
		{"wrong check digit", "79927398710", false},
		{"letters", "7992739871a", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.valid, IsLuhn(tt.number))
		})
	}
}

func TestIsPickupNumber(t *testing.T) {
	assert.True(t, IsPickupNumber("123456789031"))
	assert.False(t, IsPickupNumber("79927398713"))
	assert.False(t, IsPickupNumber("123456789032"))
}

func TestGeneratePickupNumber(t *testing.T) {
	for i := 0; i < 20; i++ {
		number := GeneratePickupNumber()
		assert.Len(t, number, PickupNumberLength)
		assert.True(t, IsLuhn(number), number)
	}
}
