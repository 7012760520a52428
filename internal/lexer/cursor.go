package lexer

import (
	"vbscope/internal/source"
)

// Cursor представляет собой позицию в модуле
type Cursor struct {
	Snap *source.Snapshot
	Off  uint32
	// Limit is the exclusive upper bound for Off.
	Limit uint32
}

// NewCursor creates a new cursor for the provided snapshot.
func NewCursor(s *source.Snapshot) Cursor {
	return Cursor{
		Snap:  s,
		Off:   0,
		Limit: s.Len(),
	}
}

// EOF проверяет, достигнут ли конец модуля
func (c *Cursor) EOF() bool {
	return c.Off >= c.Limit
}

// Peek читает текущий байт, если есть, иначе возвращает 0
func (c *Cursor) Peek() byte {
	if c.EOF() {
		return 0
	}
	return c.Snap.Content[c.Off]
}

// PeekAt читает байт со смещением n от текущей позиции, 0 за пределами
func (c *Cursor) PeekAt(n uint32) byte {
	if c.Off+n >= c.Limit {
		return 0
	}
	return c.Snap.Content[c.Off+n]
}

// Prev возвращает байт перед курсором, 0 в начале
func (c *Cursor) Prev() byte {
	if c.Off == 0 {
		return 0
	}
	return c.Snap.Content[c.Off-1]
}

// Bump перемещает курсор на один байт вперед и возвращает прочитанный байт
func (c *Cursor) Bump() byte {
	if c.EOF() {
		return 0
	}
	b := c.Snap.Content[c.Off]
	c.Off++
	return b
}

// Mark это метка, что бы быстро получать Span читаемого фрагмента
type Mark uint32

// Mark сохраняет текущую позицию курсора
func (c *Cursor) Mark() Mark {
	return Mark(c.Off)
}

// SpanFrom получает Span для фрагмента, начиная с метки
func (c *Cursor) SpanFrom(m Mark) source.Span {
	return source.Span{
		Module: c.Snap.Module,
		Start:  uint32(m),
		End:    c.Off,
	}
}

// Reset возвращает курсор назад к метке
func (c *Cursor) Reset(m Mark) {
	c.Off = uint32(m)
}

// Eat consumes the next byte if it matches the provided byte.
func (c *Cursor) Eat(b byte) bool {
	if !c.EOF() && c.Snap.Content[c.Off] == b {
		c.Off++
		return true
	}
	return false
}

// EatFold consumes b ignoring ASCII case.
func (c *Cursor) EatFold(b byte) bool {
	if !c.EOF() && lower(c.Snap.Content[c.Off]) == lower(b) {
		c.Off++
		return true
	}
	return false
}
