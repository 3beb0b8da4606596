package entrypoint

// Jakarta recognizes servlets, filters, listeners, websocket endpoints,
// message-driven beans and web services.
type Jakarta struct{}

func (Jakarta) Name() string { return "jakarta" }

func (Jakarta) IsEntrypointClass(t TypeView) bool {
	if !t.IsClass {
		return false
	}
	if anyContains(annotationNames(t.Annotations),
		"WebServlet", "WebFilter", "WebListener", "ServerEndpoint", "MessageDriven", "WebService") {
		return true
	}
	var extends []string
	for _, e := range t.Extends {
		extends = append(extends, simpleName(e))
	}
	return anyContains(extends, "HttpServlet", "GenericServlet") ||
		anyContains(t.Implements, "ServletContextListener", "HttpSessionListener",
			"ServletRequestListener", "MessageListener")
}

func (Jakarta) IsEntrypointMethod(m MethodView) bool {
	return anyContains(m.ParameterTypes, "HttpServletRequest", "HttpServletResponse")
}

// Struts recognizes actions and interceptors.
type Struts struct{}

func (Struts) Name() string { return "struts" }

func (Struts) IsEntrypointClass(t TypeView) bool {
	if !t.IsClass {
		return false
	}
	if anyContains(annotationNames(t.Annotations), "Action", "Namespace", "InterceptorRef") {
		return true
	}
	return ancestorsContain(t, "ActionSupport", "Interceptor")
}

func (Struts) IsEntrypointMethod(m MethodView) bool {
	if m.Parent == nil || !m.Parent.IsClass {
		return false
	}
	if !anyContains(m.Parent.Extends, "ActionSupport", "Action") {
		return false
	}
	return m.Name == "execute" || anyContains(m.Annotations,
		"Action", "Actions", "ValidationMethod", "InputConfig", "BeforeResult",
		"After", "Before", "Result", "Results")
}

// Spring recognizes controllers, stereotype components, runners, request
// mappings, listeners, scheduled jobs and lifecycle callbacks.
type Spring struct{}

func (Spring) Name() string { return "spring" }

func (Spring) IsEntrypointClass(t TypeView) bool {
	if anyContains(annotationNames(t.Annotations),
		"RestController", "Controller", "HandleInterceptor", "HandlerInterceptor",
		"SpringBootApplication", "Configuration", "Component", "Service", "Repository") {
		return true
	}
	if !t.IsClass {
		return false
	}
	for _, i := range t.Implements {
		switch simpleName(i) {
		case "CommandLineRunner", "ApplicationRunner":
			return true
		}
	}
	return false
}

func (Spring) IsEntrypointMethod(m MethodView) bool {
	return anyContains(m.Annotations,
		"GetMapping", "PostMapping", "PutMapping", "DeleteMapping", "PatchMapping", "RequestMapping",
		"EventListener", "Scheduled", "KafkaListener", "RabbitListener", "JmsListener",
		"PreAuthorize", "PostAuthorize", "PostConstruct", "PreDestroy",
		"Around", "Before", "After", "JobScope", "StepScope")
}

// Camel recognizes route builders, processors, producers and consumers.
type Camel struct{}

func (Camel) Name() string { return "camel" }

func (Camel) IsEntrypointClass(t TypeView) bool {
	if !t.IsClass {
		return false
	}
	if anyContains(annotationNames(t.Annotations), "Component") {
		return true
	}
	return ancestorsContain(t, "RouteBuilder", "Processor", "Producer", "Consumer")
}

func (Camel) IsEntrypointMethod(MethodView) bool { return false }

// JaxRS recognizes resources by their HTTP method annotations.
type JaxRS struct{}

func (JaxRS) Name() string { return "jaxrs" }

func (r JaxRS) IsEntrypointClass(t TypeView) bool {
	for _, m := range t.Methods {
		if r.IsEntrypointMethod(m) {
			return true
		}
	}
	return false
}

func (JaxRS) IsEntrypointMethod(m MethodView) bool {
	return anyContains(m.Annotations, "POST", "PUT", "GET", "HEAD", "DELETE")
}
