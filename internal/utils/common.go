package utils

import (
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/twpayne/go-vfs/v4"
)

// GetHostProcCmdline returns the path to the kernel cmdline, overridable with HOST_PROC_CMDLINE.
func GetHostProcCmdline() string {
	proc := os.Getenv("HOST_PROC_CMDLINE")
	if proc == "" {
		return "/proc/cmdline"
	}
	return proc
}

// ReadCMDLineArg returns the values of every cmdline stanza starting with arg.
// Stanzas without a value return an empty string entry.
func ReadCMDLineArg(arg string) []string {
	cmdLine, err := os.ReadFile(GetHostProcCmdline())
	if err != nil {
		return []string{}
	}
	res := []string{}
	for _, f := range strings.Fields(string(cmdLine)) {
		if strings.HasPrefix(f, arg) {
			res = append(res, strings.TrimPrefix(f, arg))
		}
	}
	return res
}

// ReadEnv parses an env file like the board definition.
func ReadEnv(fs vfs.FS, file string) (map[string]string, error) {
	f, err := fs.Open(file)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return godotenv.Parse(f)
}

// CleanupSlice removes empty and whitespace only entries.
func CleanupSlice(slice []string) []string {
	var cleanSlice []string
	for _, s := range slice {
		if strings.TrimSpace(s) == "" {
			continue
		}
		cleanSlice = append(cleanSlice, strings.TrimSpace(s))
	}
	return cleanSlice
}

// UniqueSlice removes duplicated entries keeping the first occurrence.
func UniqueSlice(slice []string) []string {
	keys := make(map[string]bool)
	var list []string
	for _, entry := range slice {
		if _, value := keys[entry]; !value {
			keys[entry] = true
			list = append(list, entry)
		}
	}
	return list
}

// CreateIfNotExists creates the directory path if it is missing.
func CreateIfNotExists(fs vfs.FS, path string) error {
	if _, err := fs.Stat(path); os.IsNotExist(err) {
		return vfs.MkdirAll(fs, path, 0755)
	}
	return nil
}
