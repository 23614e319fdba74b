// Пакет rbac — логика определения эффективной роли пользователя портала.
// Роли выводятся из двух булевых флагов учётной записи (is_admin, is_operator).
// Правила: admin включает все права operator; operator включает права user.
package rbac

// Роли в порядке возрастания привилегий.
const (
	RoleUser     = "user"
	RoleOperator = "operator"
	RoleAdmin    = "admin"
)

// roleWeight — вес роли для сравнения.
// Чем выше вес, тем больше привилегий.
var roleWeight = map[string]int{
	RoleUser:     1,
	RoleOperator: 2,
	RoleAdmin:    3,
}

// RoleFromFlags вычисляет роль из флагов учётной записи.
// Оба флага независимы; при одновременной установке побеждает admin.
func RoleFromFlags(isAdmin, isOperator bool) string {
	switch {
	case isAdmin:
		return RoleAdmin
	case isOperator:
		return RoleOperator
	default:
		return RoleUser
	}
}

// HasAtLeast проверяет, что роль role не ниже required.
func HasAtLeast(role, required string) bool {
	return roleWeight[role] >= roleWeight[required]
}
