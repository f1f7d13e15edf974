// pkg/serviceid/serviceid.go
//
// Пакет serviceid раздаёт единое имя сервиса всем подсистемам, которые
// помечают им свои метрики. Подсистемы регистрируются через Register()
// из init(), а main() один раз вызывает InitServiceName().
package serviceid

import "sync"

// ServiceNameKey — ключ лейбла для метрик всех подсистем.
const ServiceNameKey = "service"

var (
	mu      sync.Mutex
	setters []func(string)
)

// Register добавляет setter лейбла; вызывается из init() подсистемы.
func Register(set func(string)) {
	mu.Lock()
	defer mu.Unlock()
	setters = append(setters, set)
}

// InitServiceName задаёт единое имя сервиса для всех зарегистрированных
// подсистем. Нужно вызывать в main() до первой отправки метрик.
func InitServiceName(name string) {
	mu.Lock()
	defer mu.Unlock()
	for _, set := range setters {
		set(name)
	}
}
