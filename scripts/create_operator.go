// scripts/create_operator.go
package main

import (
	"fmt"
	"log"
	"os"

	"golang.org/x/crypto/bcrypt"

	"github.com/patiponrmutl/ScanAttendance/config"
)

// go run ./scripts <password>
// พิมพ์บรรทัด OPERATOR_PASSWORD_HASH=... ให้นำไปใส่ใน .env
func main() {
	if len(os.Args) != 2 || os.Args[1] == "" {
		fmt.Fprintln(os.Stderr, "usage: go run ./scripts <password>")
		os.Exit(2)
	}
	password := os.Args[1]

	// โหลด config ตามที่ main.go ใช้จริง เพื่อเตือนถ้ามีรหัสอยู่แล้ว
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if cfg.OperatorPasswordHash != "" {
		if bcrypt.CompareHashAndPassword([]byte(cfg.OperatorPasswordHash), []byte(password)) == nil {
			fmt.Println("⚠️  OPERATOR_PASSWORD_HASH already matches this password")
			os.Exit(0)
		}
		fmt.Println("⚠️  OPERATOR_PASSWORD_HASH is already set; the line below replaces it")
	}

	// แฮชรหัสผ่าน
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		log.Fatalf("failed to hash password: %v", err)
	}

	fmt.Println("✅ Operator password hash created. Add this to .env:")
	// single quotes: godotenv expands $ inside unquoted values
	fmt.Printf("OPERATOR_PASSWORD_HASH='%s'\n", hashed)
}
