package utility

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"cloud.google.com/go/firestore"
	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/auth"
	"google.golang.org/api/option"
)

var (
	firebaseApp     *firebase.App
	firebaseAuth    *auth.Client
	firestoreClient *firestore.Client
)

// findRootDir tìm thư mục gốc của ứng dụng (thư mục chứa config/env)
func findRootDir() (string, error) {
	currentDir, err := os.Getwd()
	if err != nil {
		return "", err
	}

	for {
		envDir := filepath.Join(currentDir, "config", "env")
		if _, err := os.Stat(envDir); err == nil {
			return currentDir, nil
		}

		parentDir := filepath.Dir(currentDir)
		if parentDir == currentDir {
			return "", fmt.Errorf("không tìm thấy thư mục gốc ứng dụng")
		}
		currentDir = parentDir
	}
}

// resolveCredentialsPath: đường dẫn tương đối được tính từ thư mục gốc ứng dụng
func resolveCredentialsPath(credentialsPath string) (string, error) {
	if credentialsPath == "" {
		return "", nil
	}
	if !filepath.IsAbs(credentialsPath) {
		rootDir, err := findRootDir()
		if err != nil {
			return "", err
		}
		credentialsPath = filepath.Join(rootDir, credentialsPath)
	}
	if _, err := os.Stat(credentialsPath); os.IsNotExist(err) {
		return "", fmt.Errorf("firebase credentials file not found: %s", credentialsPath)
	}
	return credentialsPath, nil
}

// InitFirebase khởi tạo Firebase Admin SDK (Auth + Firestore).
// credentialsPath rỗng thì dùng Application Default Credentials.
func InitFirebase(ctx context.Context, projectID, credentialsPath string) error {
	credentialsPath, err := resolveCredentialsPath(credentialsPath)
	if err != nil {
		return err
	}

	var opts []option.ClientOption
	if credentialsPath != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsPath))
	}

	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: projectID}, opts...)
	if err != nil {
		return fmt.Errorf("failed to initialize Firebase app: %v", err)
	}
	firebaseApp = app

	authClient, err := app.Auth(ctx)
	if err != nil {
		return fmt.Errorf("failed to get Firebase Auth client: %v", err)
	}
	firebaseAuth = authClient

	fsClient, err := app.Firestore(ctx)
	if err != nil {
		return fmt.Errorf("failed to get Firestore client: %v", err)
	}
	firestoreClient = fsClient
	return nil
}

// GetFirebaseAuth trả về Firebase Auth client
func GetFirebaseAuth() *auth.Client {
	return firebaseAuth
}

// GetFirestore trả về Firestore client (nil nếu chưa khởi tạo)
func GetFirestore() *firestore.Client {
	return firestoreClient
}

// CloseFirebase đóng Firestore client
func CloseFirebase() error {
	if firestoreClient == nil {
		return nil
	}
	err := firestoreClient.Close()
	firestoreClient = nil
	return err
}

// VerifyIDToken verify Firebase ID token và trả về user info
func VerifyIDToken(ctx context.Context, idToken string) (*auth.Token, error) {
	if firebaseAuth == nil {
		return nil, fmt.Errorf("firebase auth not initialized")
	}

	token, err := firebaseAuth.VerifyIDToken(ctx, idToken)
	if err != nil {
		return nil, fmt.Errorf("failed to verify ID token: %v", err)
	}

	return token, nil
}
