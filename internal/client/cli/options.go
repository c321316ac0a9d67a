package cli

import (
	"flag"
	"io"
	"strings"

	"github.com/dmitrijs2005/pontos/internal/flagx"
)

const tokenEnv = "PONTOS_TOKEN"

type options struct {
	PontoID     string
	Interpreter string
	FilePath    string
	Author      string
	Consent     bool
	MimeType    string
	DurationMs  int64
	Token       string
}

// parseOptions reads the uploader flags; -consent must come last or be
// written as -consent=true when followed by a bare word.
func parseOptions(args []string) (*options, error) {
	args = flagx.FilterArgs(args, []string{
		"-song", "-interpreter", "-file", "-author", "-consent", "-mime", "-duration", "-token",
	})

	var o options
	fs := flag.NewFlagSet("upload", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.StringVar(&o.PontoID, "song", "", "ponto id")
	fs.StringVar(&o.Interpreter, "interpreter", "", "interpreter name")
	fs.StringVar(&o.FilePath, "file", "", "audio file to upload")
	fs.StringVar(&o.Author, "author", "", "author name")
	fs.BoolVar(&o.Consent, "consent", false, "consent to publish the recording")
	fs.StringVar(&o.MimeType, "mime", "", "override the detected audio type")
	fs.Int64Var(&o.DurationMs, "duration", 0, "duration in milliseconds")
	fs.StringVar(&o.Token, "token", "", "bearer token")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	o.PontoID = strings.TrimSpace(o.PontoID)
	o.Interpreter = strings.TrimSpace(o.Interpreter)
	return &o, nil
}

// resolveToken picks the first non-empty source: flag, environment, prompt.
func resolveToken(o *options, getenv func(string) string, prompt func() (string, error)) (string, error) {
	if o.Token != "" {
		return o.Token, nil
	}
	if tok := strings.TrimSpace(getenv(tokenEnv)); tok != "" {
		return tok, nil
	}
	return prompt()
}
