package inspection

import "github.com/rotisserie/eris"

// ErrMalformedInput reports markup that cannot be parsed at all: empty
// content or an unsupported declared encoding. It aborts the whole document.
var ErrMalformedInput = eris.New("inspection: malformed input")
