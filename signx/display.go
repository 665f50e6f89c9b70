package signx

import (
	"fmt"
	"io"
	"strings"

	"github.com/mdp/qrterminal/v3"
)

// Display shows a QR payload to the human holding the wallet.
type Display interface {
	Show(title, payload string)
}

// TerminalDisplay renders QR codes as half-block characters.
type TerminalDisplay struct {
	Out io.Writer
}

func (d *TerminalDisplay) Show(title, payload string) {
	indent := strings.Repeat(" ", 5)
	fmt.Fprintf(d.Out, "\n%s%s\n%sScan with the IXO app\n%s%s\n", indent, title, indent, indent, strings.Repeat("-", 30))
	qrterminal.GenerateHalfBlock(payload, qrterminal.L, d.Out)
	fmt.Fprintf(d.Out, "%sWaiting...\n\n", indent)
}
