// Talkgest turns Wikipedia talk pages into conversation trees.
//
// Usage:
//
//	# Run the HTTP API and ingest pipeline
//	talkgest serve
//
//	# Parse one dump file into JSON Lines
//	talkgest parse enwiki-latest-pages-meta-current1.xml-p1p41242.bz2 --out trees.jsonl
//
//	# List available dumps, or download and parse each of them
//	talkgest dumps --download
package main

func main() {
	Execute()
}
