package room

import "errors"

var (
	ErrInvalidCode       = errors.New("invalid room code")
	ErrRoomNotFound      = errors.New("room not found")
	ErrInsufficientFunds = errors.New("not enough coins")
	ErrInvalidPurchase   = errors.New("invalid purchase")
)

// Reason maps a directory or purchase error to the code reported to clients.
func Reason(err error) string {
	switch {
	case errors.Is(err, ErrInvalidCode):
		return "InvalidCode"
	case errors.Is(err, ErrRoomNotFound):
		return "RoomNotFound"
	case errors.Is(err, ErrInsufficientFunds):
		return "InsufficientFunds"
	case errors.Is(err, ErrInvalidPurchase):
		return "InvalidPurchase"
	default:
		return "Unknown"
	}
}
