package main

import (
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"

	"github.com/urfave/cli"
)

func main() {
	app := cli.NewApp()
	app.Name = "minepool-cli"
	app.Usage = "interact with a local minepool node"
	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:  "host",
			Usage: "host for the minepool node",
			Value: "localhost",
		},
		cli.StringFlag{
			Name:  "http",
			Usage: "local http port",
			Value: "8935",
		},
	}
	app.Commands = []cli.Command{
		{
			Name:  "status",
			Usage: "show platform emission status",
			Action: func(c *cli.Context) error {
				return httpGet(c, "/platform", nil)
			},
		},
		{
			Name:      "holder",
			Usage:     "show a holder's tickets and claimable amounts",
			ArgsUsage: "<address>",
			Action: func(c *cli.Context) error {
				return httpGet(c, "/holder", url.Values{"holder": {c.Args().First()}})
			},
		},
		{
			Name:      "set-cap",
			Usage:     "adjust the administrative emission cap",
			ArgsUsage: "<caller> <cap>",
			Action: func(c *cli.Context) error {
				return httpPost(c, "/setEmissionCap", url.Values{
					"caller": {c.Args().Get(0)},
					"cap":    {c.Args().Get(1)},
				})
			},
		},
		{
			Name:      "withdraw",
			Usage:     "sweep custodied payment funds to an operator account",
			ArgsUsage: "<caller> <to> <amount>",
			Action: func(c *cli.Context) error {
				return httpPost(c, "/withdraw", url.Values{
					"caller": {c.Args().Get(0)},
					"to":     {c.Args().Get(1)},
					"amount": {c.Args().Get(2)},
				})
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func baseURL(c *cli.Context) string {
	return fmt.Sprintf("http://%s:%s", c.GlobalString("host"), c.GlobalString("http"))
}

func httpGet(c *cli.Context, path string, params url.Values) error {
	u := baseURL(c) + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}
	resp, err := http.Get(u)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return printResponse(resp)
}

func httpPost(c *cli.Context, path string, params url.Values) error {
	resp, err := http.PostForm(baseURL(c)+path, params)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return printResponse(resp)
}

func printResponse(resp *http.Response) error {
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	fmt.Println(string(body))
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("node returned status %d", resp.StatusCode)
	}
	return nil
}
