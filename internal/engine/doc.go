// Package engine выполняет граф workflow.
//
// Engine отвечает за:
//   - Валидацию структуры графа и построение индекса (BuildGraph)
//   - Состояние одного run: contextData, статус, ошибка (ExecContext)
//   - Обход графа: очередь работ, сбор входов, вызов run-функций,
//     запись выходов, таймауты и retry (Walker)
//   - Рендеринг шаблонов в конфигурации узлов (Render*)
//
// Ключевой инвариант: данные между узлами ходят только через
// contextData под ключами "<nodeID>.<portID>". Узел собирает входы
// обратным проходом по входящим рёбрам и никогда не знает, какие
// узлы стоят выше него по графу.
package engine
