// Command graphpatterns runs the tool-calling agent, the tool router and the
// joke map-reduce graph against a hosted chat model.
package main

func main() {
	Execute()
}
