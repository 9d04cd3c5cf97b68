package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"lockproxy/internal/dto"
	"lockproxy/internal/handlers"
	"lockproxy/internal/utils"
)

func main() {
	address := flag.String("address", "", "caller address the token is issued for")
	role := flag.String("role", dto.RoleWallet, "wallet | operator")
	ttl := flag.Duration("ttl", 24*time.Hour, "token lifetime")
	flag.Parse()

	caller, err := utils.ParseAddress(*address)
	if err != nil {
		fmt.Printf("Invalid -address: %v\n", err)
		os.Exit(1)
	}
	if *role != dto.RoleWallet && *role != dto.RoleOperator {
		fmt.Printf("Invalid -role: %s\n", *role)
		os.Exit(1)
	}

	// same secret source as the server
	issuer := handlers.NewTokenIssuer(os.Getenv("ADMIN_JWT_SECRET"), *ttl)
	tokenString, expiresAt, err := issuer.Issue(caller, *role)
	if err != nil {
		fmt.Printf("Error generating token: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("============================================================")
	fmt.Println("JWT Token Generated for Testing")
	fmt.Println("============================================================")
	fmt.Println()
	fmt.Println("Token:")
	fmt.Println(tokenString)
	fmt.Println()
	fmt.Println("Claims:")
	fmt.Printf("  Address: %s\n", caller.Hex())
	fmt.Printf("  Role: %s\n", *role)
	fmt.Printf("  Expires: %s\n", expiresAt)
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Printf("  curl -H 'Authorization: Bearer %s' http://localhost:8080/api/lock-events\n", tokenString)
}
