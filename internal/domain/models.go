package domain

// Domain contains core models and interfaces.

// LockFlag reports whether a board item was marked or locked by moderators.
type LockFlag int

const (
	LockNone LockFlag = iota
	LockMarked
	LockLocked
)

func (f LockFlag) String() string {
	switch f {
	case LockMarked:
		return "marked"
	case LockLocked:
		return "locked"
	default:
		return "none"
	}
}

// WithdrawnAuthor is the author placeholder boards show for deleted posts.
const WithdrawnAuthor = "-"

// Item is a single post listed on a board index.
type Item struct {
	ID     int64
	Title  string
	Author string
	Date   string
	Link   string
	Lock   LockFlag
}

// Withdrawn reports whether the post was deleted by its author or moderators.
func (i Item) Withdrawn() bool {
	return i.Author == WithdrawnAuthor
}

// Locked reports whether the post carries a marked or locked flag.
func (i Item) Locked() bool {
	return i.Lock == LockMarked || i.Lock == LockLocked
}
