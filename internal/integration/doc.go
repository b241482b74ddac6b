// Package integration вызывает downstream-системы разработки при импорте.
//
// Каждая версия оркестратора, созданная импортом, регистрируется в
// downstream-системе через операцию ImportRef. Провайдер выбирается по
// стандарту интеграции (тип оркестратора) и меткам окружения:
//
//	reg := integration.NewRegistry()
//	reg.Register("workflow", integration.DevEnv, devProvider)
//	reg.Register("workflow", integration.NonDevEnv, prodProvider)
//
//	d := integration.NewDispatcher(integration.Config{Registry: reg})
//	resp, err := d.Import(ctx, target,
//	    integration.WithContextID(contextID),
//	    integration.WithTargetProject(projectID, projectName),
//	    integration.WithResource(resourceID, version),
//	    integration.WithNewVersion("v2"),
//	)
package integration
