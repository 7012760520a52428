package ast

// Visibility описывает доступность объявления.
type Visibility uint8

const (
	// VisImplicit means no modifier was written; the default depends on the construct.
	VisImplicit Visibility = iota
	VisPrivate
	VisPublic
	VisFriend
	VisGlobal
)

func (v Visibility) String() string {
	switch v {
	case VisPrivate:
		return "Private"
	case VisPublic:
		return "Public"
	case VisFriend:
		return "Friend"
	case VisGlobal:
		return "Global"
	default:
		return "Implicit"
	}
}
