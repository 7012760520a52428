package token

import "strings"

var keywordSpelling = map[Kind]string{
	KwAddressOf:  "AddressOf",
	KwAnd:        "And",
	KwAs:         "As",
	KwByRef:      "ByRef",
	KwByVal:      "ByVal",
	KwCall:       "Call",
	KwCase:       "Case",
	KwConst:      "Const",
	KwDeclare:    "Declare",
	KwDim:        "Dim",
	KwDo:         "Do",
	KwEach:       "Each",
	KwElse:       "Else",
	KwElseIf:     "ElseIf",
	KwEmpty:      "Empty",
	KwEnd:        "End",
	KwEndIf:      "EndIf",
	KwEnum:       "Enum",
	KwEqv:        "Eqv",
	KwErase:      "Erase",
	KwEvent:      "Event",
	KwExit:       "Exit",
	KwFalse:      "False",
	KwFor:        "For",
	KwFriend:     "Friend",
	KwFunction:   "Function",
	KwGlobal:     "Global",
	KwGoSub:      "GoSub",
	KwGoTo:       "GoTo",
	KwIf:         "If",
	KwImp:        "Imp",
	KwImplements: "Implements",
	KwIn:         "In",
	KwIs:         "Is",
	KwLet:        "Let",
	KwLike:       "Like",
	KwLoop:       "Loop",
	KwMe:         "Me",
	KwMod:        "Mod",
	KwNew:        "New",
	KwNext:       "Next",
	KwNot:        "Not",
	KwNothing:    "Nothing",
	KwNull:       "Null",
	KwOn:         "On",
	KwOption:     "Option",
	KwOptional:   "Optional",
	KwOr:         "Or",
	KwParamArray: "ParamArray",
	KwPrivate:    "Private",
	KwProperty:   "Property",
	KwPublic:     "Public",
	KwRaiseEvent: "RaiseEvent",
	KwReDim:      "ReDim",
	KwResume:     "Resume",
	KwSelect:     "Select",
	KwSet:        "Set",
	KwStatic:     "Static",
	KwStop:       "Stop",
	KwSub:        "Sub",
	KwThen:       "Then",
	KwTo:         "To",
	KwTrue:       "True",
	KwType:       "Type",
	KwTypeOf:     "TypeOf",
	KwUntil:      "Until",
	KwWend:       "Wend",
	KwWhile:      "While",
	KwWith:       "With",
	KwWithEvents: "WithEvents",
	KwXor:        "Xor",
}

var keywords = func() map[string]Kind {
	m := make(map[string]Kind, len(keywordSpelling))
	for k, s := range keywordSpelling {
		m[strings.ToLower(s)] = k
	}
	return m
}()

// LookupKeyword returns the keyword kind for ident, ignoring case.
// Contextual words (Get, Lib, Alias, Step, Preserve, Explicit, ...) are not
// reserved; the parser matches them by text via Token.Is.
func LookupKeyword(ident string) (Kind, bool) {
	k, ok := keywords[strings.ToLower(ident)]
	return k, ok
}
