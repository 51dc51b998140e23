package sched

// Waitable is implemented by every blocking primitive. A task blocked on a
// waitable becomes eligible again only once IsWaiting reports false.
type Waitable interface {
	IsWaiting() bool
}

// Holder is a waitable that knows which task currently holds it.
type Holder interface {
	Waitable
	Holder() (TaskID, bool)
}
