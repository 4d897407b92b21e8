package forbiddencalls

import (
	"log"
	"os"
)

func main() {
	cfg := loadConfig(os.Getenv("CONFIG"))
	_ = mustTimeout(cfg)

	a := &app{}
	if err := a.Run(); err != nil {
		log.Fatal(err)
	}

	defer func() {
		os.Exit(0)
	}()
}

func init() {
	if os.Getenv("SECRET_KEY") == "" {
		panic("secret key is required") // want "panic is forbidden"
	}
	log.Fatal("forbidden in init") // want "log.Fatal is forbidden outside main function"
}
