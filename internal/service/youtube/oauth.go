package youtube

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"
)

// OAuthService holds an authorized YouTube client for channel ownership
// verification. Influencers prove a channel is theirs by completing the
// consent flow; the read-only scope is all verification needs.
type OAuthService struct {
	service   *youtube.Service
	config    *oauth2.Config
	token     *oauth2.Token
	tokenFile string
	logger    *zap.Logger
}

func NewOAuthService(credentialsFile, tokenFile string, logger *zap.Logger) (*OAuthService, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	credBytes, err := os.ReadFile(credentialsFile)
	if err != nil {
		return nil, fmt.Errorf("unable to read credentials file: %w", err)
	}

	config, err := google.ConfigFromJSON(credBytes, youtube.YoutubeReadonlyScope)
	if err != nil {
		return nil, fmt.Errorf("unable to parse credentials: %w", err)
	}

	token, err := loadToken(tokenFile)
	if err != nil {
		logger.Warn("No existing token found, need to authorize",
			zap.String("file", tokenFile))

		return &OAuthService{
			config:    config,
			token:     nil,
			tokenFile: tokenFile,
			logger:    logger,
		}, nil
	}

	ctx := context.Background()
	client := config.Client(ctx, token)

	ytService, err := youtube.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return nil, fmt.Errorf("failed to create YouTube service: %w", err)
	}

	logger.Info("YouTube OAuth service initialized",
		zap.Bool("authenticated", true))

	return &OAuthService{
		service:   ytService,
		config:    config,
		token:     token,
		tokenFile: tokenFile,
		logger:    logger,
	}, nil
}

// Authorize runs the console consent flow and persists the token.
func (oa *OAuthService) Authorize(ctx context.Context) error {
	if oa == nil {
		return fmt.Errorf("service not initialized")
	}

	authURL := oa.config.AuthCodeURL("state-token", oauth2.AccessTypeOffline)

	oa.logger.Info("Authorization required")
	fmt.Println("\n=== YouTube Channel Authorization ===")
	fmt.Println("Go to the following link in your browser:")
	fmt.Println(authURL)
	fmt.Println("\nAfter authorization, enter the code here:")

	var code string
	if _, err := fmt.Scan(&code); err != nil {
		return fmt.Errorf("unable to read authorization code: %w", err)
	}

	token, err := oa.config.Exchange(ctx, code)
	if err != nil {
		return fmt.Errorf("unable to retrieve token: %w", err)
	}

	if err := saveToken(oa.tokenFile, token); err != nil {
		return fmt.Errorf("unable to save token: %w", err)
	}

	oa.token = token

	client := oa.config.Client(ctx, token)
	ytService, err := youtube.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return fmt.Errorf("failed to create YouTube service: %w", err)
	}

	oa.service = ytService

	oa.logger.Info("YouTube OAuth authorization complete",
		zap.String("token_file", oa.tokenFile))

	fmt.Println("\nAuthorization successful! Token saved.")

	return nil
}

// VerifyChannelOwnership checks that the authorized account owns the given
// channel ID by listing the account's own channels.
func (oa *OAuthService) VerifyChannelOwnership(ctx context.Context, channelID string) (bool, error) {
	if !oa.IsAuthorized() {
		return false, fmt.Errorf("YouTube OAuth not authorized")
	}

	call := oa.service.Channels.List([]string{"id"}).Mine(true)
	resp, err := call.Context(ctx).Do()
	if err != nil {
		return false, fmt.Errorf("failed to list owned channels: %w", err)
	}

	for _, channel := range resp.Items {
		if channel.Id == channelID {
			return true, nil
		}
	}

	return false, nil
}

func (oa *OAuthService) IsAuthorized() bool {
	return oa != nil && oa.service != nil && oa.token != nil
}

func loadToken(file string) (*oauth2.Token, error) {
	f, err := os.Open(file)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	token := &oauth2.Token{}
	err = json.NewDecoder(f).Decode(token)
	return token, err
}

func saveToken(file string, token *oauth2.Token) error {
	f, err := os.OpenFile(file, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	defer f.Close()

	return json.NewEncoder(f).Encode(token)
}
