package models

import (
	"archive/zip"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

// Model represents a downloadable Vosk model
type Model struct {
	Name        string
	Language    string
	Size        string
	URL         string
	Description string
}

// Available models from the Vosk catalog
var AvailableModels = []Model{
	{
		Name:        "vosk-model-en-in-0.5",
		Language:    "en-IN",
		Size:        "1G",
		URL:         "https://alphacephei.com/vosk/models/vosk-model-en-in-0.5.zip",
		Description: "Indian English model, accurate for telephony and dictation",
	},
	{
		Name:        "vosk-model-small-en-us-0.15",
		Language:    "en-US",
		Size:        "40M",
		URL:         "https://alphacephei.com/vosk/models/vosk-model-small-en-us-0.15.zip",
		Description: "Lightweight English model, fast but less accurate",
	},
	{
		Name:        "vosk-model-en-us-0.22",
		Language:    "en-US",
		Size:        "1.8G",
		URL:         "https://alphacephei.com/vosk/models/vosk-model-en-us-0.22.zip",
		Description: "Large English model, slower but more accurate",
	},
}

// DefaultModelName is the model used when none is configured
const DefaultModelName = "vosk-model-en-in-0.5"

// GetModelsDir returns the directory where models are stored.
// HARK_MODELS_DIR overrides the default ./models under the working directory.
func GetModelsDir() (string, error) {
	if dir := os.Getenv("HARK_MODELS_DIR"); dir != "" {
		return dir, nil
	}
	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to get working directory: %w", err)
	}
	return filepath.Join(cwd, "models"), nil
}

// GetDefaultModel returns the configured default model name
// If no custom default is set, returns DefaultModelName
func GetDefaultModel() (string, error) {
	modelsDir, err := GetModelsDir()
	if err != nil {
		return DefaultModelName, err
	}

	configFile := filepath.Join(modelsDir, ".default_model")
	data, err := os.ReadFile(configFile)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultModelName, nil
		}
		return DefaultModelName, err
	}

	modelName := strings.TrimSpace(string(data))
	if modelName == "" {
		return DefaultModelName, nil
	}

	return modelName, nil
}

// SetDefaultModel sets the default model to use
func SetDefaultModel(modelName string) error {
	if FindModel(modelName) == nil {
		return fmt.Errorf("unknown model: %s", modelName)
	}

	modelsDir, err := GetModelsDir()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(modelsDir, 0755); err != nil {
		return fmt.Errorf("failed to create models directory: %w", err)
	}

	configFile := filepath.Join(modelsDir, ".default_model")
	if err := os.WriteFile(configFile, []byte(modelName), 0644); err != nil {
		return fmt.Errorf("failed to save default model: %w", err)
	}

	return nil
}

// IsModelDownloaded checks if a model is already downloaded
func IsModelDownloaded(modelName string) (bool, error) {
	modelsDir, err := GetModelsDir()
	if err != nil {
		return false, err
	}

	info, err := os.Stat(filepath.Join(modelsDir, modelName))
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	return info.IsDir(), nil
}

// GetModelPath returns the path to a downloaded model directory
func GetModelPath(modelName string) (string, error) {
	modelsDir, err := GetModelsDir()
	if err != nil {
		return "", err
	}

	downloaded, err := IsModelDownloaded(modelName)
	if err != nil {
		return "", err
	}
	if !downloaded {
		return "", fmt.Errorf("model not found: %s", modelName)
	}

	return filepath.Join(modelsDir, modelName), nil
}

// FindModel finds a model by name in the available models list
func FindModel(name string) *Model {
	for _, model := range AvailableModels {
		if model.Name == name {
			return &model
		}
	}
	return nil
}

// EnsureModel makes sure the named model is present on disk, downloading it
// when autoDownload is set. Returns the model path. The flow is headless;
// without autoDownload a missing model is an error with a download hint.
func EnsureModel(name string, autoDownload bool, progress func(downloaded, total int64)) (string, error) {
	downloaded, err := IsModelDownloaded(name)
	if err != nil {
		return "", fmt.Errorf("failed to check for model: %w", err)
	}

	if !downloaded {
		if !autoDownload {
			return "", fmt.Errorf("model %s is not downloaded (enable auto_download or run with -download-model %s)", name, name)
		}
		if err := DownloadModel(name, progress); err != nil {
			return "", fmt.Errorf("failed to download model: %w", err)
		}
	}

	return GetModelPath(name)
}

// DownloadModel downloads and extracts a model from the Vosk website
func DownloadModel(modelName string, progress func(downloaded, total int64)) error {
	model := FindModel(modelName)
	if model == nil {
		return fmt.Errorf("unknown model: %s", modelName)
	}

	modelsDir, err := GetModelsDir()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(modelsDir, 0755); err != nil {
		return fmt.Errorf("failed to create models directory: %w", err)
	}

	// Download to a temporary zip next to the final location
	zipPath := filepath.Join(modelsDir, modelName+".zip")
	defer os.Remove(zipPath)

	resp, err := http.Get(model.URL)
	if err != nil {
		return fmt.Errorf("failed to download model: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download failed with status: %s", resp.Status)
	}

	out, err := os.Create(zipPath)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer out.Close()

	total := resp.ContentLength
	var downloaded int64

	buf := make([]byte, 32*1024)
	for {
		n, err := resp.Body.Read(buf)
		if n > 0 {
			if _, writeErr := out.Write(buf[:n]); writeErr != nil {
				return fmt.Errorf("failed to write file: %w", writeErr)
			}
			downloaded += int64(n)
			if progress != nil {
				progress(downloaded, total)
			}
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("download error: %w", err)
		}
	}

	if err := extractZip(zipPath, modelsDir); err != nil {
		return fmt.Errorf("failed to extract model: %w", err)
	}

	return nil
}

// extractZip extracts a zip file to the specified directory
func extractZip(zipPath, destDir string) error {
	r, err := zip.OpenReader(zipPath)
	if err != nil {
		return err
	}
	defer r.Close()

	for _, f := range r.File {
		fpath := filepath.Join(destDir, f.Name)

		// Reject entries that escape the destination directory
		if !strings.HasPrefix(fpath, filepath.Clean(destDir)+string(os.PathSeparator)) {
			return fmt.Errorf("illegal file path: %s", fpath)
		}

		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(fpath, os.ModePerm); err != nil {
				return err
			}
			continue
		}

		if err := os.MkdirAll(filepath.Dir(fpath), os.ModePerm); err != nil {
			return err
		}

		outFile, err := os.OpenFile(fpath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, f.Mode())
		if err != nil {
			return err
		}

		rc, err := f.Open()
		if err != nil {
			outFile.Close()
			return err
		}

		_, err = io.Copy(outFile, rc)
		outFile.Close()
		rc.Close()

		if err != nil {
			return err
		}
	}

	return nil
}

// ListDownloadedModels lists all downloaded models
func ListDownloadedModels() ([]string, error) {
	modelsDir, err := GetModelsDir()
	if err != nil {
		return nil, err
	}

	if _, err := os.Stat(modelsDir); os.IsNotExist(err) {
		return []string{}, nil
	}

	entries, err := os.ReadDir(modelsDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read models directory: %w", err)
	}

	var models []string
	for _, entry := range entries {
		if entry.IsDir() && strings.HasPrefix(entry.Name(), "vosk-model-") {
			models = append(models, entry.Name())
		}
	}

	return models, nil
}
