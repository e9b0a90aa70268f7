/*
Package dsl provides a fluent builder for constructing stories in Go code.

It is the programmatic alternative to editing node files by hand, useful for
seeding demo content, generating stories and writing tests with IDE
autocompletion instead of raw JSON.

Example usage:

	package main

	import (
		"github.com/mooncrowned/storyed/pkg/dsl"
	)

	func main() {
		b := dsl.New()

		b.Node(0).
			Text("anna", "Hey, are you coming tonight?").
			Answer("Sure!", 1).
			Answer("Sorry, busy.", 2)

		b.Node(1).Text("anna", "Great, see you at eight.")
		b.Node(2).Text("anna", "Maybe next time then.")

		nodes := b.Build()
		// ... load nodes into a story.Store or persist them with a Repository
		_ = nodes
	}
*/
package dsl
