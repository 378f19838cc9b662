package validate

import (
	"github.com/ShiraazMoollatjie/goluhn"
)

// PickupNumberLength is the number of digits in an order pickup number.
const PickupNumberLength = 12

func IsLuhn(s string) bool {
	err := goluhn.Validate(s)
	return err == nil
}

// IsPickupNumber reports whether s looks like a number issued by GeneratePickupNumber.
func IsPickupNumber(s string) bool {
	return len(s) == PickupNumberLength && IsLuhn(s)
}

func GeneratePickupNumber() string {
	return goluhn.Generate(PickupNumberLength)
}
