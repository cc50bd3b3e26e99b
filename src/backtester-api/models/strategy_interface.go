package models

// IStrategy turns each completed bar into an optional order. A nil order means hold.
type IStrategy interface {
	OnBar(bar Bar, account AccountState) (*Order, error)
	Reset()
}
