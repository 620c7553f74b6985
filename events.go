package weave

// Lifecycle event names, in normal firing order.
// Applications register hooks against these with Router.On.
const (
	EventFrameworkStart             = "framework_start"
	EventBeforeDBConnection         = "before_db_connection"
	EventAfterDBConnection          = "after_db_connection"
	EventBeforeModelsLoad           = "before_models_load"
	EventAfterModelsLoad            = "after_models_load"
	EventBeforeRouterInit           = "before_router_init"
	EventAfterRoutesRegistered      = "after_routes_registered"
	EventBeforeRouteMatch           = "before_route_match"
	EventAfterRouteMatch            = "after_route_match"
	EventBeforeControllerLoad       = "before_controller_load"
	EventAfterControllerInstantiate = "after_controller_instantiate"
	EventBeforeActionExecute        = "before_action_execute"
	EventAfterActionExecute         = "after_action_execute"
	EventBeforeViewRender           = "before_view_render"
	EventAfterViewRender            = "after_view_render"
	EventOn404                      = "on_404"
	EventOnError                    = "on_error"
	EventFrameworkShutdown          = "framework_shutdown"
)

var lifecycleEvents = map[string]bool{
	EventFrameworkStart:             true,
	EventBeforeDBConnection:         true,
	EventAfterDBConnection:          true,
	EventBeforeModelsLoad:           true,
	EventAfterModelsLoad:            true,
	EventBeforeRouterInit:           true,
	EventAfterRoutesRegistered:      true,
	EventBeforeRouteMatch:           true,
	EventAfterRouteMatch:            true,
	EventBeforeControllerLoad:       true,
	EventAfterControllerInstantiate: true,
	EventBeforeActionExecute:        true,
	EventAfterActionExecute:         true,
	EventBeforeViewRender:           true,
	EventAfterViewRender:            true,
	EventOn404:                      true,
	EventOnError:                    true,
	EventFrameworkShutdown:          true,
}

// IsLifecycleEvent reports whether name is one of the fixed lifecycle events.
func IsLifecycleEvent(name string) bool {
	return lifecycleEvents[name]
}
