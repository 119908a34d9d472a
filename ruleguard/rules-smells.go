package gorules

import "github.com/quasilyte/go-ruleguard/dsl"

func smells(m dsl.Matcher) {
	// Consecutive guards with the same return can be merged:
	//   if a { return err }
	//   if b { return err }
	// => if a || b { return err }
	m.Match(`if $c1 { return $ret }; if $c2 { return $ret }`).
		Report(`two consecutive guards return the same value; consider merging conditions with ||`).
		Suggest(`if $c1 || $c2 { return $ret }`)

	m.Match(`if $c1 { continue }; if $c2 { continue }`).
		Report(`two consecutive continues; consider merging conditions with ||`).
		Suggest(`if $c1 || $c2 { continue }`)

	m.Match(`for $*_ { for $*_ { $*_ } }`).
		Report(`nested for-loop; consider extracting inner loop logic or reducing algorithmic complexity`)
}

// output keeps printing in cmd/: library packages log through slog or return values.
func output(m dsl.Matcher) {
	m.Match(`fmt.Println($*_)`, `fmt.Printf($*_)`, `fmt.Print($*_)`).
		Where(m.File().PkgPath.Matches(`/internal/|/pkg/`)).
		Report(`printing to stdout from a library package; log with slog or return the value`)

	m.Import(`log`)
	m.Match(`log.Printf($*_)`, `log.Println($*_)`, `log.Print($*_)`, `log.Fatalf($*_)`, `log.Fatal($*_)`).
		Where(m.File().PkgPath.Matches(`/internal/|/pkg/`)).
		Report(`standard log package in a library package; use the injected *slog.Logger`)
}

// secrets flags request content reaching logs.
func secrets(m dsl.Matcher) {
	m.Import(`log/slog`)
	m.Match(`$log.$method($msg, $*_, "api_key", $*_)`, `$log.$method($ctx, $msg, $*_, "api_key", $*_)`).
		Where(m["log"].Type.Is(`*slog.Logger`)).
		Report(`API key passed to a log call`)

	m.Match(`$log.$method($msg, $*_, "input", $*_)`, `$log.$method($ctx, $msg, $*_, "input", $*_)`).
		Where(m["log"].Type.Is(`*slog.Logger`)).
		Report(`prompt content passed to a log call; log sizes instead`)
}
