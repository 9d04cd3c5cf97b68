package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/pquerna/otp/totp"
)

func main() {
	account := flag.String("account", "", "operator address; generates a new secret when set")
	flag.Parse()

	if *account != "" {
		key, err := totp.Generate(totp.GenerateOpts{
			Issuer:      "lockproxy-gateway",
			AccountName: *account,
		})
		if err != nil {
			fmt.Printf("Error generating TOTP secret: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Secret: %s\n", key.Secret())
		fmt.Printf("URL: %s\n", key.URL())
		fmt.Println("Add it to auth.operators in config.yaml")
		return
	}

	// 生成当前 TOTP code
	secret := os.Getenv("OPERATOR_TOTP_SECRET")
	if secret == "" {
		fmt.Println("OPERATOR_TOTP_SECRET is not set")
		os.Exit(1)
	}
	code, err := totp.GenerateCode(secret, time.Now())
	if err != nil {
		fmt.Printf("Error generating TOTP code: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Current TOTP Code: %s\n", code)
	fmt.Printf("Valid for: ~30 seconds\n")
}
