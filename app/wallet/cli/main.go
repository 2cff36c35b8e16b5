// This program signs transactions and reads chain state through the public
// node API.
package main

import "github.com/nexuschain/chaincore/app/wallet/cli/cmd"

func main() {
	cmd.Execute()
}
