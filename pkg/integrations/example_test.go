package integrations_test

import (
	"fmt"

	"github.com/matzehuels/stackgate/pkg/integrations"
)

func ExampleNormalizePkgName() {
	fmt.Println(integrations.NormalizePkgName("  Express "))
	fmt.Println(integrations.NormalizePkgName("@Types/Node"))
	// Output:
	// express
	// @types/node
}

func ExampleEscapePkgName() {
	// Scoped names keep the "@" and encode the slash
	fmt.Println(integrations.EscapePkgName("@types/node"))
	fmt.Println(integrations.EscapePkgName("left-pad"))
	// Output:
	// @types%2fnode
	// left-pad
}

func Example_errors() {
	fmt.Println("ErrNotFound:", integrations.ErrNotFound)
	fmt.Println("ErrRateLimited:", integrations.ErrRateLimited)
	// Output:
	// ErrNotFound: resource not found
	// ErrRateLimited: rate limited
}
