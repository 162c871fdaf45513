// passlanectl es la CLI de operación: habla con el servicio por su API HTTP.
// Pensada para smoke tests y soporte, no para tráfico de usuarios.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
