package display

import (
	"fmt"
	"io"

	"github.com/VTVIMAL/WebP-Converter/internal/term"
)

// PrintBanner prints the ASCII art banner, in cyan when colors are enabled.
func PrintBanner(w io.Writer) {
	if term.Enabled() {
		fmt.Fprint(w, term.Cyan)
	}
	fmt.Fprint(w, ` _                                       
(_)_ __ ___   __ _  ___ ___  _ ____   __
| | '_ `+"`"+` _ \ / _`+"`"+` |/ __/ _ \| '_ \ \ / /
| | | | | | | (_| | (_| (_) | | | \ V / 
|_|_| |_| |_|\__, |\___\___/|_| |_|\_/  
             |___/                      
`)
	if term.Enabled() {
		fmt.Fprint(w, term.NC)
	}
	fmt.Fprintln(w)
}
