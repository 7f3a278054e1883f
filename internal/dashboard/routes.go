// Package dashboard описывает таблицу маршрутов раздела дашборда веб-клиента.
// Это только данные: какие макеты и представления рисуются по какому пути.
package dashboard

import "strings"

// Имена макетов и представлений клиента.
const (
	DashboardLayout = "DashboardLayout"
	BodyLayout      = "BodyLayout"
	IssuesLayout    = "IssuesLayout"
	MyIssues        = "MyIssues"
)

// RouteMyIssues — имя маршрута списка задач текущего пользователя.
const RouteMyIssues = "workspace.my-issues"

type Meta struct {
	TitleKey string `json:"titleKey,omitempty"`
}

// Route — узел таблицы маршрутов. Components сопоставляет имени слота компонент,
// Component задаётся для маршрута с единственным слотом по умолчанию.
type Route struct {
	Path       string            `json:"path"`
	Name       string            `json:"name,omitempty"`
	Component  string            `json:"component,omitempty"`
	Components map[string]string `json:"components,omitempty"`
	Props      bool              `json:"props,omitempty"`
	Meta       *Meta             `json:"meta,omitempty"`
	Children   []Route           `json:"children,omitempty"`
}

// Groups — группы маршрутов, которые определены в других разделах и подключаются
// внутрь основного тела дашборда.
type Groups struct {
	Workspace        []Route
	WorkspaceSetting []Route
	EnvironmentV1    []Route
	Instance         []Route
	ProjectV1        []Route
}

func (g Groups) flatten() []Route {
	var out []Route
	out = append(out, g.Workspace...)
	out = append(out, g.WorkspaceSetting...)
	out = append(out, g.EnvironmentV1...)
	out = append(out, g.Instance...)
	out = append(out, g.ProjectV1...)
	return out
}

// Routes собирает таблицу маршрутов дашборда.
func Routes(groups Groups) []Route {
	return []Route{
		{
			Path:      "/",
			Component: DashboardLayout,
			Children: []Route{
				{
					Path:       "",
					Components: map[string]string{"body": BodyLayout},
					Children:   groups.flatten(),
				},
				{
					Path:       "issues",
					Components: map[string]string{"body": IssuesLayout},
					Props:      true,
					Meta:       &Meta{TitleKey: "common.issues"},
					Children: []Route{
						{
							Path:       "",
							Name:       RouteMyIssues,
							Components: map[string]string{"content": MyIssues},
						},
					},
				},
			},
		},
	}
}

// Find ищет маршрут по имени и возвращает его вместе с полным путём.
func Find(routes []Route, name string) (Route, string, bool) {
	return find(routes, name, "")
}

// FullPath возвращает полный путь маршрута с именем name.
func FullPath(routes []Route, name string) (string, bool) {
	_, path, ok := Find(routes, name)
	return path, ok
}

func find(routes []Route, name, parent string) (Route, string, bool) {
	for _, r := range routes {
		full := join(parent, r.Path)
		if r.Name == name {
			return r, full, true
		}
		if found, path, ok := find(r.Children, name, full); ok {
			return found, path, true
		}
	}
	return Route{}, "", false
}

// join склеивает путь родителя и относительный путь потомка.
func join(parent, path string) string {
	if strings.HasPrefix(path, "/") {
		return path
	}
	if path == "" {
		if parent == "" {
			return "/"
		}
		return parent
	}
	return strings.TrimSuffix(parent, "/") + "/" + path
}
