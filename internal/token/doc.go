// Package token defines lexical token kinds and trivia.
// Invariants:
//   - Keywords are matched case-insensitively; contextual words (Get, Lib,
//     Alias, Step, Preserve, Explicit, Base, Compare, ...) stay identifiers.
//   - Newline is a real token because statements are line-based. A line
//     continuation (" _" + line break) is trivia and produces no Newline.
//   - Comments are trivia attached to the token that follows them, which is
//     always the Newline (or EOF) ending the comment's line.
//   - Annotation comments ('@Name args) are parsed into Trivia.Annotation.
//   - Built-in type names (Long, String, Variant, ...) are identifiers.
package token
