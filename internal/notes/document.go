package notes

// Token is one lowercased word from a document, with its byte offset in the
// raw text so search can cut snippets around the first hit.
type Token struct {
	Text   string
	Offset int
}

// Document is the parsed, cached representation of one markdown file.
// Raw always round-trips byte-identically with what is on disk; rendering
// never feeds back into it.
type Document struct {
	Path     string
	Title    string
	Raw      []byte
	HTML     string
	Tokens   []Token
	Checksum string
}
