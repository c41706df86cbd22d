package menuview

// Level is the severity of a Notice.
type Level string

const (
	LevelSuccess Level = "success"
	LevelInfo    Level = "info"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Notice is a short message for the visitor, shown once.
type Notice struct {
	Level   Level  `json:"level"`
	Title   string `json:"title,omitempty"`
	Message string `json:"message"`
}

const (
	msgMenuLoadFailed = "Error al cargar el menú"
	msgCartCleared    = "Carrito vaciado"
	msgCartEmpty      = "Agrega productos al carrito primero"
	msgCheckout       = "Redirigiendo al checkout..."
	msgUnavailable    = "Menú no disponible"
	titlePerfect      = "¡Perfecto!"
)

func addedMessage(name string) string { return name + " agregado al carrito" }

func (c *Controller) notify(level Level, title, msg string) {
	c.notices = append(c.notices, Notice{Level: level, Title: title, Message: msg})
}

// DrainNotices returns and clears the pending notices.
func (c *Controller) DrainNotices() []Notice {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := c.notices
	c.notices = nil
	return out
}
