package services

import (
	"bufio"
	"os"

	"task-app/backend/task-service/logging"
)

// LoadBlackList učitava zabranjene lozinke iz fajla u mapu. Prazna putanja
// vraća praznu listu, pa servis radi i bez konfigurisanog fajla.
func LoadBlackList(filePath string) (map[string]bool, error) {
	blackList := make(map[string]bool)
	if filePath == "" {
		logging.Logger.Warn("Event ID: BLACKLIST_NOT_CONFIGURED, Description: BLACKLIST_FILE is not set, password blacklist is empty.")
		return blackList, nil
	}

	file, err := os.Open(filePath)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		blackList[scanner.Text()] = true
	}

	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return blackList, nil
}
