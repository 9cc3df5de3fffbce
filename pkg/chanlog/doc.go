// Package chanlog embeds the channel log engine in an existing IRC client.
//
// Quick start:
//
//	l, err := chanlog.New(chanlog.WithLogDir("logs"), chanlog.WithOperators("*!*@staff.example"))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer l.Close()
//
//	sess := l.Session("libera", "logbot", conn)
//	for scanner.Scan() {
//	    if err := sess.Feed(scanner.Text()); err != nil {
//	        log.Print(err)
//	    }
//	}
//	sess.Close()
//
// Every raw line the client receives is passed to Feed; lines the client sends
// on its own are passed to Sent so they show up in the transcripts. Replies to
// logging commands are written to the session's writer.
//
// A Logger is safe for concurrent use. Calls are serialized internally.
package chanlog
