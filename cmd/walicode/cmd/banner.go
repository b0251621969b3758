package cmd

import (
	"fmt"
	"io"
)

const banner = `
 __        __    _ _  ____          _      
 \ \      / /_ _| (_)/ ___|___   __| | ___ 
  \ \ /\ / / _` + "`" + ` | | | |   / _ \ / _` + "`" + ` |/ _ \
   \ V  V / (_| | | | |__| (_) | (_| |  __/
    \_/\_/ \__,_|_|_|\____\___/ \__,_|\___|
                                           
`

func printBanner(w io.Writer) {
	fmt.Fprintf(w, "\x1b[34m%s\x1b[0m", banner)
	fmt.Fprintf(w, "\x1b[32m  Mock Backend - Version %s\x1b[0m\n\n", Version)
}
