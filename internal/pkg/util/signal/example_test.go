package signal_test

import (
	"fmt"

	"github.com/autopeer-io/groundlink/internal/pkg/util/signal"
)

func ExampleSignal() {
	var removed signal.Signal[int]

	removed.Connect(func(id int) { fmt.Println("selector saw", id) })
	disconnect := removed.Connect(func(id int) { fmt.Println("notifier saw", id) })

	removed.Emit(3)
	disconnect()
	removed.Emit(4)
	// Output:
	// selector saw 3
	// notifier saw 3
	// selector saw 4
}
