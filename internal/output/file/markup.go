package file

import (
	"fmt"
	"html"
	"time"

	"github.com/crimson-sun/chanlog/internal/config"
	"github.com/crimson-sun/chanlog/internal/timefmt"
)

// headerMarker identifies a markup file that already carries its document shell.
const headerMarker = "<head>"

const defaultTitleDate = "%Y-%m-%d"

// markupHeader is the document shell written at the top of a new markup log.
func markupHeader(channel string, now time.Time, s *config.Settings) string {
	pattern := s.Directories.TimestampFormat
	if pattern == "" {
		pattern = defaultTitleDate
	}
	title := html.EscapeString(fmt.Sprintf("IRC log of %s on %s", channel, timefmt.Format(pattern, now)))
	return fmt.Sprintf(`<!DOCTYPE html>
<html>
%s
 <title>%s</title>
 <link rel="stylesheet" href="%s" type="text/css" />
 <script src="%s" type="text/javascript"></script>
 <meta http-equiv="content-type" content="text/html; charset=utf-8" />
</head>
<body>
<h1>%s</h1>
<p>Timestamps are in UTC.</p>
`, headerMarker, title,
		html.EscapeString(s.Markup.Stylesheet),
		html.EscapeString(s.Markup.Script),
		title)
}

// markupFooter closes the document opened by markupHeader.
const markupFooter = "\n</body>\n</html>\n"
