package checkout

// IDGenerator abstracts order id creation so tests can pin ids.
type IDGenerator interface {
	NewID() string
}
