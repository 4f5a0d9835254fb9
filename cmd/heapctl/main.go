// Command heapctl drives a block heap from the command line: one-shot
// commands against a heap image file, offline inspection, the acceptance
// self-tests, and an interactive shell.
package main

func main() {
	execute()
}
