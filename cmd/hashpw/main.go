// cmd/hashpw prints an Argon2id hash suitable for ADMIN_PASSWORD_HASH.
package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/jason-s-yu/tysiac/internal/auth"
)

func main() {
	var password string
	if len(os.Args) > 1 {
		password = os.Args[1]
	} else {
		fmt.Fprint(os.Stderr, "password: ")
		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil && line == "" {
			logrus.Fatalf("read password: %v", err)
		}
		password = strings.TrimRight(line, "\r\n")
	}
	if password == "" {
		logrus.Fatal("password must not be empty")
	}

	hash, err := auth.CreateHash(password, auth.Params)
	if err != nil {
		logrus.Fatalf("hash password: %v", err)
	}
	fmt.Println(hash)
}
