package tui

// ModalKind identifies which modal is open.
type ModalKind int

// Modal kinds.
const (
	ModalDetail ModalKind = iota + 1
	ModalCreate
	ModalEdit
	ModalDelete
	ModalImport
)

func (k ModalKind) String() string {
	switch k {
	case ModalDetail:
		return "detail"
	case ModalCreate:
		return "create"
	case ModalEdit:
		return "edit"
	case ModalDelete:
		return "delete"
	case ModalImport:
		return "import"
	default:
		return "closed"
	}
}

// Modal is the single modal slot of a screen: either closed, or open with a
// kind and the id of the row it acts on. Create and import have no target.
// The zero value is closed.
type Modal struct {
	kind   ModalKind
	target string
}

// Closed returns the closed modal.
func Closed() Modal { return Modal{} }

// Open returns an open modal.
func Open(kind ModalKind, target string) Modal {
	return Modal{kind: kind, target: target}
}

// IsOpen reports whether a modal is shown.
func (m Modal) IsOpen() bool { return m.kind != 0 }

// Kind returns the open kind, or 0 when closed.
func (m Modal) Kind() ModalKind { return m.kind }

// Target returns the row id the modal acts on.
func (m Modal) Target() string { return m.target }

// Is reports whether the modal is open with kind.
func (m Modal) Is(kind ModalKind) bool { return m.kind == kind }
