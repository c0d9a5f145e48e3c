// Пакет rbac — определение итоговой роли пользователя LMS.
// Роль берётся из claim role (приложение) и из групп IdP;
// итоговая роль = максимальная из найденных.
package rbac

import "strings"

// Роли в порядке возрастания привилегий.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// roleWeight — вес роли для сравнения.
var roleWeight = map[string]int{
	RoleUser:  1,
	RoleAdmin: 2,
}

// maxRole возвращает роль с максимальными привилегиями из двух.
func maxRole(a, b string) string {
	if roleWeight[a] >= roleWeight[b] {
		return a
	}
	return b
}

// HighestRole возвращает максимальную роль из набора.
// Неизвестные роли игнорируются. Если допустимых ролей нет — пустая строка.
func HighestRole(roles []string) string {
	highest := ""
	for _, r := range roles {
		if !IsValidRole(r) {
			continue
		}
		highest = maxRole(highest, r)
	}
	return highest
}

// MapGroupsToRole определяет роль по группам IdP.
// Членство в любой из adminGroups даёт admin, иначе — пустая строка.
// Ведущий "/" в имени группы (формат Keycloak full path) игнорируется.
func MapGroupsToRole(groups []string, adminGroups []string) string {
	adminSet := toSet(adminGroups)
	for _, g := range groups {
		if adminSet[strings.TrimPrefix(g, "/")] {
			return RoleAdmin
		}
	}
	return ""
}

// EffectiveRole вычисляет итоговую роль из явного claim, ролей realm и групп.
// Аутентифицированный пользователь без распознанной роли получает user.
func EffectiveRole(claimRole string, realmRoles, groups, adminGroups []string) string {
	candidates := make([]string, 0, len(realmRoles)+2)
	candidates = append(candidates, claimRole)
	candidates = append(candidates, realmRoles...)
	candidates = append(candidates, MapGroupsToRole(groups, adminGroups))

	role := HighestRole(candidates)
	if role == "" {
		return RoleUser
	}
	return role
}

// IsValidRole проверяет, является ли строка допустимой ролью.
func IsValidRole(role string) bool {
	_, ok := roleWeight[role]
	return ok
}

// toSet конвертирует срез строк в map для быстрого поиска.
func toSet(items []string) map[string]bool {
	s := make(map[string]bool, len(items))
	for _, item := range items {
		s[item] = true
	}
	return s
}
