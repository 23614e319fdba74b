// auth.go — JWT middleware для аутентификации через LINE Login.
// Валидирует ID-токен LINE (подпись через JWKS, issuer, audience),
// подгружает учётную запись портала по provider_id и помещает
// claims с ролью в контекст запроса.
package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/MicahParks/jwkset"
	"github.com/MicahParks/keyfunc/v3"
	"github.com/golang-jwt/jwt/v5"

	apierrors "github.com/Joyboy-it/Line-price/internal/api/errors"
	"github.com/Joyboy-it/Line-price/internal/domain/model"
	"github.com/Joyboy-it/Line-price/internal/domain/rbac"
	"github.com/Joyboy-it/Line-price/internal/repository"
)

// contextKey — тип для ключей контекста (избегаем коллизий).
type contextKey string

const (
	// ContextKeyClaims — полные извлечённые claims в контексте запроса.
	ContextKeyClaims contextKey = "jwt_claims"
)

// AuthClaims — извлечённые claims LINE ID-токена вместе с учётной
// записью портала. Помещаются в контекст запроса для downstream handlers.
type AuthClaims struct {
	// UserID — UUID пользователя портала.
	// Пустой, если пользователь ещё не зарегистрирован (первый вход).
	UserID string
	// ProviderID — sub из ID-токена (идентификатор LINE).
	ProviderID string
	// Name — display name из токена.
	Name string
	// Picture — URL аватара из токена.
	Picture string
	// Email — email из токена (LINE выдаёт только с scope email).
	Email string
	// IsAdmin, IsOperator — флаги учётной записи портала.
	IsAdmin    bool
	IsOperator bool
	// Role — роль, вычисленная из флагов (user, operator, admin).
	Role string
}

// HasRole проверяет, покрывает ли роль субъекта требуемую.
func (c *AuthClaims) HasRole(required string) bool {
	return rbac.HasAtLeast(c.Role, required)
}

// UserProvider — интерфейс для получения учётной записи по provider_id.
// Реализуется repository.UserRepository.
type UserProvider interface {
	GetByProviderID(ctx context.Context, providerID string) (*model.User, error)
}

// lineClaims — raw claims LINE ID-токена.
type lineClaims struct {
	jwt.RegisteredClaims
	// Name — display name пользователя LINE.
	Name string `json:"name"`
	// Picture — URL аватара.
	Picture string `json:"picture"`
	// Email — email (только при scope email).
	Email string `json:"email,omitempty"`
}

// JWTAuth — middleware аутентификации через JWKS LINE.
type JWTAuth struct {
	jwks         keyfunc.Keyfunc
	logger       *slog.Logger
	userProvider UserProvider
	issuer       string
	channelID    string
	jwtLeeway    time.Duration
}

// NewJWTAuth создаёт JWT middleware с JWKS LINE.
// jwksURL — URL JWKS endpoint (https://api.line.me/oauth2/v2.1/certs).
// issuer — ожидаемый issuer (https://access.line.me).
// channelID — Channel ID приложения LINE Login (audience токенов).
// userProvider — загрузка учётной записи портала по provider_id.
func NewJWTAuth(
	jwksURL string,
	issuer string,
	channelID string,
	userProvider UserProvider,
	jwtLeeway time.Duration,
	logger *slog.Logger,
) (*JWTAuth, error) {
	// JWKS Storage с фоновым обновлением.
	// NoErrorReturnFirstHTTPReq — стартуем даже если LINE ещё недоступен.
	storage, err := jwkset.NewStorageFromHTTP(jwksURL, jwkset.HTTPClientStorageOptions{
		NoErrorReturnFirstHTTPReq: true,
		RefreshInterval:           time.Hour,
		RefreshErrorHandler: func(_ context.Context, err error) {
			logger.Error("Ошибка обновления JWKS",
				slog.String("error", err.Error()),
				slog.String("url", jwksURL),
			)
		},
	})
	if err != nil {
		return nil, fmt.Errorf("создание JWKS storage: %w", err)
	}

	k, err := keyfunc.New(keyfunc.Options{
		Storage: storage,
	})
	if err != nil {
		return nil, fmt.Errorf("создание keyfunc: %w", err)
	}

	return &JWTAuth{
		jwks:         k,
		logger:       logger.With(slog.String("component", "jwt_auth")),
		userProvider: userProvider,
		issuer:       issuer,
		channelID:    channelID,
		jwtLeeway:    jwtLeeway,
	}, nil
}

// NewJWTAuthWithKeyfunc создаёт JWT middleware с предоставленной keyfunc.
// Используется в тестах для подстановки mock JWKS.
func NewJWTAuthWithKeyfunc(
	kf keyfunc.Keyfunc,
	issuer string,
	channelID string,
	userProvider UserProvider,
	logger *slog.Logger,
) *JWTAuth {
	return &JWTAuth{
		jwks:         kf,
		logger:       logger.With(slog.String("component", "jwt_auth")),
		userProvider: userProvider,
		issuer:       issuer,
		channelID:    channelID,
	}
}

// Middleware возвращает HTTP middleware для JWT-аутентификации.
// Извлекает Bearer token, валидирует подпись (RS256/ES256), issuer и
// audience, подгружает учётную запись и помещает claims в контекст.
func (j *JWTAuth) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Извлекаем Bearer token
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				apierrors.Unauthorized(w, "Отсутствует заголовок Authorization")
				return
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
				apierrors.Unauthorized(w, "Неверный формат Authorization: ожидается Bearer <token>")
				return
			}

			tokenString := parts[1]
			if tokenString == "" {
				apierrors.Unauthorized(w, "Пустой Bearer token")
				return
			}

			// Парсинг и валидация ID-токена через JWKS
			rawClaims := &lineClaims{}
			parserOpts := []jwt.ParserOption{
				jwt.WithValidMethods([]string{"RS256", "ES256"}),
				jwt.WithExpirationRequired(),
				jwt.WithLeeway(j.jwtLeeway),
				jwt.WithAudience(j.channelID),
			}
			if j.issuer != "" {
				parserOpts = append(parserOpts, jwt.WithIssuer(j.issuer))
			}

			token, err := jwt.ParseWithClaims(tokenString, rawClaims, j.jwks.KeyfuncCtx(r.Context()), parserOpts...)
			if err != nil {
				j.logger.Debug("JWT валидация не пройдена",
					slog.String("error", err.Error()),
					slog.String("remote_addr", r.RemoteAddr),
				)
				apierrors.Unauthorized(w, "Невалидный или просроченный токен")
				return
			}

			if !token.Valid {
				apierrors.Unauthorized(w, "Невалидный токен")
				return
			}

			subject, err := rawClaims.GetSubject()
			if err != nil || subject == "" {
				apierrors.Unauthorized(w, "Отсутствует sub в токене")
				return
			}

			authClaims, err := j.buildAuthClaims(r.Context(), rawClaims)
			if err != nil {
				j.logger.Error("Ошибка загрузки учётной записи",
					slog.String("provider_id", subject),
					slog.String("error", err.Error()),
				)
				apierrors.InternalError(w, "Ошибка загрузки учётной записи")
				return
			}

			ctx := context.WithValue(r.Context(), ContextKeyClaims, authClaims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// buildAuthClaims формирует AuthClaims из claims токена и учётной записи.
// Отсутствие учётной записи не является ошибкой: первый вход создаёт её
// через POST /api/auth/login.
func (j *JWTAuth) buildAuthClaims(ctx context.Context, raw *lineClaims) (*AuthClaims, error) {
	claims := &AuthClaims{
		ProviderID: raw.Subject,
		Name:       raw.Name,
		Picture:    raw.Picture,
		Email:      raw.Email,
		Role:       rbac.RoleUser,
	}

	user, err := j.userProvider.GetByProviderID(ctx, raw.Subject)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return claims, nil
		}
		return nil, err
	}

	claims.UserID = user.ID
	claims.IsAdmin = user.IsAdmin
	claims.IsOperator = user.IsOperator
	claims.Role = rbac.RoleFromFlags(user.IsAdmin, user.IsOperator)
	return claims, nil
}

// --- RBAC middleware helpers ---

// RequireUser возвращает middleware, требующий зарегистрированную
// учётную запись портала. Должен использоваться ПОСЛЕ JWTAuth.Middleware().
func RequireUser() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims := ClaimsFromContext(r.Context())
			if claims == nil {
				apierrors.Unauthorized(w, "Отсутствуют claims в контексте")
				return
			}
			if claims.UserID == "" {
				apierrors.Unauthorized(w, "Учётная запись не найдена: выполните вход")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireRole возвращает middleware, требующий роль не ниже указанной.
// operator покрывается admin. Должен использоваться ПОСЛЕ JWTAuth.Middleware().
func RequireRole(role string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims := ClaimsFromContext(r.Context())
			if claims == nil {
				apierrors.Unauthorized(w, "Отсутствуют claims в контексте")
				return
			}
			if claims.UserID == "" {
				apierrors.Unauthorized(w, "Учётная запись не найдена: выполните вход")
				return
			}
			if !claims.HasRole(role) {
				apierrors.Forbidden(w, fmt.Sprintf("Недостаточно прав: требуется роль %s", role))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// --- Context helpers ---

// ClaimsFromContext извлекает AuthClaims из контекста запроса.
// Возвращает nil, если claims не найдены.
func ClaimsFromContext(ctx context.Context) *AuthClaims {
	claims, _ := ctx.Value(ContextKeyClaims).(*AuthClaims)
	return claims
}

// UserIDFromContext извлекает UUID пользователя портала из контекста.
// Возвращает пустую строку, если claims не найдены.
func UserIDFromContext(ctx context.Context) string {
	claims := ClaimsFromContext(ctx)
	if claims == nil {
		return ""
	}
	return claims.UserID
}

// --- ReadinessChecker для LINE ---

// LineReadinessChecker — проверка доступности LINE через JWKS endpoint.
type LineReadinessChecker struct {
	jwksURL string
	client  *http.Client
}

// NewLineReadinessChecker создаёт checker доступности LINE JWKS.
func NewLineReadinessChecker(jwksURL string, timeout time.Duration) *LineReadinessChecker {
	return &LineReadinessChecker{
		jwksURL: jwksURL,
		client:  &http.Client{Timeout: timeout},
	}
}

const statusFail = "fail"

// CheckReady проверяет доступность JWKS endpoint LINE.
func (k *LineReadinessChecker) CheckReady() (status, message string) {
	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, k.jwksURL, http.NoBody)
	if err != nil {
		return statusFail, "ошибка создания запроса: " + err.Error()
	}
	resp, err := k.client.Do(req)
	if err != nil {
		return statusFail, fmt.Sprintf("LINE JWKS недоступен: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return statusFail, fmt.Sprintf("LINE JWKS вернул статус %d", resp.StatusCode)
	}

	// Проверяем, что ответ — валидный JSON с ключами
	var jwksResp struct {
		Keys []json.RawMessage `json:"keys"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&jwksResp); err != nil {
		return "degraded", fmt.Sprintf("LINE JWKS: невалидный JSON: %v", err)
	}

	if len(jwksResp.Keys) == 0 {
		return "degraded", "LINE JWKS: нет ключей"
	}

	return "ok", fmt.Sprintf("JWKS доступен, ключей: %d", len(jwksResp.Keys))
}

// Close освобождает ресурсы JWT middleware.
func (j *JWTAuth) Close() {
	// keyfunc v3 не требует явного закрытия
}
